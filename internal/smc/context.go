package smc

// Context is the saved execution context of the calling world, as seen by a
// handler. Args returns the call arguments passed in x1-x4.
type Context interface {
	Args() (x1, x2, x3, x4 uint64)
}

// NumGPRegs is the number of general purpose registers SMCCC passes
// arguments and results in (x0-x17).
const NumGPRegs = 18

// CPUContext is a caller's saved general purpose registers.
//
// A CPUContext belongs to one execution unit for the duration of a call; it
// is not safe for concurrent use.
type CPUContext struct {
	Regs [NumGPRegs]uint64
}

// NewCPUContext returns a context holding fid in x0 and args in x1 onward.
// Extra arguments beyond the register file are dropped.
func NewCPUContext(fid FunctionID, args ...uint64) *CPUContext {
	c := &CPUContext{}
	c.Regs[0] = uint64(fid)
	for i, a := range args {
		if i+1 >= NumGPRegs {
			break
		}
		c.Regs[i+1] = a
	}
	return c
}

// FunctionID returns the identifier the caller placed in w0.
func (c *CPUContext) FunctionID() FunctionID {
	return FunctionID(uint32(c.Regs[0]))
}

// Args implements Context.
func (c *CPUContext) Args() (x1, x2, x3, x4 uint64) {
	return c.Regs[1], c.Regs[2], c.Regs[3], c.Regs[4]
}

// Ret1 writes a0 to x0 and returns it as the call result.
func (c *CPUContext) Ret1(a0 uint64) Result {
	c.Regs[0] = a0
	return Result(a0)
}

// Ret2 writes a0-a1 to x0-x1.
func (c *CPUContext) Ret2(a0, a1 uint64) Result {
	c.Regs[1] = a1
	return c.Ret1(a0)
}

// Ret3 writes a0-a2 to x0-x2.
func (c *CPUContext) Ret3(a0, a1, a2 uint64) Result {
	c.Regs[2] = a2
	return c.Ret2(a0, a1)
}

// Ret4 writes a0-a3 to x0-x3.
func (c *CPUContext) Ret4(a0, a1, a2, a3 uint64) Result {
	c.Regs[3] = a3
	return c.Ret3(a0, a1, a2)
}

// Results returns x0-x3.
func (c *CPUContext) Results() [4]uint64 {
	return [4]uint64{c.Regs[0], c.Regs[1], c.Regs[2], c.Regs[3]}
}
