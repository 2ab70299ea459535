package lint

import (
	_ "embed"
	"sync"
)

//go:embed builtin.yaml
var builtinYAML []byte

var (
	builtinOnce  sync.Once
	builtinRules *RuleSet
	builtinErr   error
)

// Builtin returns the rules applied when no rules file is configured.
func Builtin() (*RuleSet, error) {
	builtinOnce.Do(func() {
		builtinRules, builtinErr = ParseRules(builtinYAML)
	})
	if builtinErr != nil {
		return nil, builtinErr
	}
	out := &RuleSet{Rules: make([]Rule, len(builtinRules.Rules))}
	copy(out.Rules, builtinRules.Rules)
	return out, nil
}
