// Package probe provides render probes: checks that answer whether a target
// renderer would accept a piece of diagram text. The cascade treats a probe
// as an opaque yes/no oracle; implementations here range from a built-in
// syntax heuristic to shelling out to a real renderer CLI.
package probe

import "context"

// Func adapts a plain function to the cascade's probe contract.
type Func func(ctx context.Context, text string) error

// Check runs the function.
func (f Func) Check(ctx context.Context, text string) error {
	return f(ctx, text)
}
