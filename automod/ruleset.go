package automod

type MessageRuleFunc = func(c *MessageContext) error

// Holds configuration of which rules should be run, and dispatches messages
// to them. Only dispatches execution, does no de-dupe or pre/post processing.
type RuleSet struct {
	MessageRules []MessageRuleFunc
}

func (r *RuleSet) CallMessageRules(c *MessageContext) error {
	for _, f := range r.MessageRules {
		if err := f(c); err != nil {
			return err
		}
	}
	return nil
}
