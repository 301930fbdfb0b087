// Package policy provides optional declarative rules that control how
// approval gates behave during a workflow run – for example auto-approving
// every checkpoint in unattended mode, or blocking selected stages entirely.
package policy
