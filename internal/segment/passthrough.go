package segment

// Passthrough carries flow unchanged and adds nothing to the model.
type Passthrough struct {
	common
}

func newPassthrough(ctx Context) *Passthrough {
	s := &Passthrough{common: newCommon(ctx, KindPassthrough)}
	s.lossless()
	return s
}
