package output

// FanOutOutput writes the same lines to several outputs, in order.
type FanOutOutput struct {
	outputs []Output
}

func NewFanOutOutput(outputs ...Output) *FanOutOutput {
	return &FanOutOutput{
		outputs: outputs,
	}
}

// WriteLines stops at the first failing output.
func (f *FanOutOutput) WriteLines(lines ...string) error {
	for _, o := range f.outputs {
		if err := o.WriteLines(lines...); err != nil {
			return err
		}
	}
	return nil
}
