package hcl

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/gridplan/internal/ctxlog"
	"github.com/vk/gridplan/internal/reactive"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// params evaluates every attribute of body into a parameter value.
func params(ctx context.Context, body hcl.Body) (map[string]any, error) {
	if body == nil {
		return nil, nil
	}
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]any, len(attrs))
	for _, name := range names {
		attr := attrs[name]
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		v, err := fromCty(ctx, val)
		if err != nil {
			return nil, fmt.Errorf("%s: attribute %q: %w", attr.Range.String(), name, err)
		}
		out[name] = v
	}
	return out, nil
}

// fromCty converts a cty value into a parameter value: a number becomes a
// float64, a list or tuple of numbers a []float64, a bool stays a bool and a
// string becomes a deferred placeholder.
func fromCty(ctx context.Context, val cty.Value) (any, error) {
	logger := ctxlog.FromContext(ctx)
	if val.IsNull() || !val.IsKnown() {
		return nil, fmt.Errorf("value must be known and not null")
	}
	ty := val.Type()
	switch {
	case ty == cty.Number:
		var f float64
		err := gocty.FromCtyValue(val, &f)
		return f, err
	case ty == cty.Bool:
		return val.True(), nil
	case ty == cty.String:
		return reactive.Deferred{Source: val.AsString()}, nil
	case ty.IsTupleType() || ty.IsListType():
		converted, err := convert.Convert(val, cty.List(cty.Number))
		if err != nil {
			return nil, fmt.Errorf("cannot convert %s to a list of numbers: %w", ty.FriendlyName(), err)
		}
		if !ty.Equals(converted.Type()) {
			logger.Debug("Implicitly converted value type.", "from", ty.FriendlyName(), "to", converted.Type().FriendlyName())
		}
		var fs []float64
		err = gocty.FromCtyValue(converted, &fs)
		return fs, err
	default:
		return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}
