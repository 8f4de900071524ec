package dicebutton

// AliasApplier rewrites user-entered option text before it is parsed,
// e.g. expanding server-defined shortcuts into dice expressions. The
// scope names where the rewrite applies (guild, channel, user), most
// specific last. Rewriting internals are outside this framework.
type AliasApplier func(scope []string, text string) string

// ApplyAlias runs the applier over the text, tolerating a nil applier.
func ApplyAlias(apply AliasApplier, scope []string, text string) string {
	if apply == nil {
		return text
	}
	return apply(scope, text)
}
