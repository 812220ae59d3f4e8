package components

import "github.com/sarchlab/sinuca-go/builder"

// DefaultRegistry builds a builder.Registry preloaded with every standard
// component class this package implements, under the class names a
// configuration file refers to them by.
func DefaultRegistry() *builder.Registry {
	r := builder.NewRegistry(nil)

	r.Register("simple_memory", NewSimpleMemory)
	r.Register("simple_instruction_memory", NewSimpleInstructionMemory)
	r.Register("cache", NewCache)
	r.Register("itlb", NewITLB)
	r.Register("btb", NewBTB)
	r.Register("ras", NewRAS)
	r.Register("hardwired_predictor", NewHardwiredPredictor)
	r.Register("simple_core", NewSimpleCore)
	r.Register("fetcher", NewFetcher)
	r.Register("mem_queue", NewMemQueue)
	r.Register("predictor_queue", NewPredictorQueue)
	r.Register("mem_delay_queue", NewMemDelayQueue)
	r.Register("predictor_delay_queue", NewPredictorDelayQueue)

	return r
}
