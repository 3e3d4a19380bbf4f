// Package demo provides the sample payload and leaf steps used by
// cmd/streampipe and the package-level examples: a small, concrete
// instantiation of the otherwise payload-generic engine.
package demo

// Data is the example payload every demo step operates on, mirroring
// the shape the source program's own demo pipeline passes through its
// validation/transformation/condition/external modules.
type Data struct {
	Key       string
	Condition bool
	Status    string
	Vars      map[string]string
}
