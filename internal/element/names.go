package element

import (
	"github.com/vk/gridplan/internal/address"
	"github.com/vk/gridplan/internal/reactive"
)

func rowName(owner, group string, t int) string {
	return address.Of(owner, group, t)
}

// peek reads a param without tracking; unset params read as zero.
func peek[T any](p *reactive.Param[T]) T {
	v, _ := p.Peek()
	return v
}
