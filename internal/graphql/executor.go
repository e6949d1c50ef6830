package graphql

import (
	"context"
	"errors"
	"fmt"

	"github.com/tournevent/ratebridge/pkg/shipper"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/validator"
)

// Request is a GraphQL request body.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Response is a GraphQL result. Data is omitted when the request could not
// be executed at all.
type Response struct {
	Data   map[string]any `json:"data,omitempty"`
	Errors gqlerror.List  `json:"errors,omitempty"`
}

// Executor runs documents against Schema. Parsing and validation use
// gqlparser; fields are resolved by walking the validated AST.
type Executor struct {
	resolver *Resolver
	schema   *ast.Schema
}

// NewExecutor creates an executor backed by resolver.
func NewExecutor(resolver *Resolver) *Executor {
	return &Executor{
		resolver: resolver,
		schema:   gqlparser.MustLoadSchema(&ast.Source{Name: "schema.graphql", Input: Schema}),
	}
}

// Execute parses, validates and runs req.
func (e *Executor) Execute(ctx context.Context, req Request) *Response {
	doc, errs := gqlparser.LoadQuery(e.schema, req.Query)
	if len(errs) > 0 {
		return &Response{Errors: errs}
	}

	op := doc.Operations.ForName(req.OperationName)
	if op == nil {
		return &Response{Errors: gqlerror.List{gqlerror.Errorf("operation %q not found", req.OperationName)}}
	}
	if op.Operation == ast.Subscription {
		return &Response{Errors: gqlerror.List{gqlerror.Errorf("subscriptions are not supported")}}
	}

	vars, err := validator.VariableValues(e.schema, op, req.Variables)
	if err != nil {
		return &Response{Errors: gqlerror.List{asGQLError(err)}}
	}

	resp := &Response{Data: map[string]any{}}
	// Root fields run one after another, which is what mutations require.
	for _, field := range collectFields(op.SelectionSet, vars) {
		value, err := e.resolveRoot(ctx, op.Operation, field, vars)
		if err != nil {
			resp.Data[field.Alias] = nil
			resp.Errors = append(resp.Errors, fieldError(field, err))
			continue
		}
		resp.Data[field.Alias] = value
	}
	return resp
}

func (e *Executor) resolveRoot(ctx context.Context, operation ast.Operation, field *ast.Field, vars map[string]any) (any, error) {
	switch field.Name {
	case "__typename":
		if operation == ast.Mutation {
			return "Mutation", nil
		}
		return "Query", nil
	case "health":
		return e.resolver.Health(ctx), nil
	case "carriers":
		return e.resolver.Carriers(ctx), nil
	case "getRates":
		args := field.ArgumentMap(vars)
		carrier, _ := args["carrier"].(string)
		quotes, err := e.resolver.GetRates(ctx, carrier, args["request"])
		if err != nil {
			return nil, err
		}
		out := make([]any, len(quotes))
		for i, q := range quotes {
			out[i] = projectQuote(field.SelectionSet, q, vars)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("field %q is not supported", field.Name)
	}
}

func projectQuote(set ast.SelectionSet, q shipper.RateQuote, vars map[string]any) map[string]any {
	out := map[string]any{}
	for _, f := range collectFields(set, vars) {
		switch f.Name {
		case "__typename":
			out[f.Alias] = "RateQuote"
		case "carrier":
			out[f.Alias] = q.Carrier
		case "serviceLevel":
			out[f.Alias] = q.ServiceLevel
		case "amount":
			out[f.Alias] = q.Amount
		case "currency":
			out[f.Alias] = q.Currency
		case "estimatedDeliveryDays":
			if q.EstimatedDeliveryDays == nil {
				out[f.Alias] = nil
			} else {
				out[f.Alias] = *q.EstimatedDeliveryDays
			}
		}
	}
	return out
}

// collectFields flattens fragments and applies @skip and @include.
func collectFields(set ast.SelectionSet, vars map[string]any) []*ast.Field {
	var fields []*ast.Field
	for _, sel := range set {
		switch s := sel.(type) {
		case *ast.Field:
			if included(s.Directives, vars) {
				fields = append(fields, s)
			}
		case *ast.InlineFragment:
			if included(s.Directives, vars) {
				fields = append(fields, collectFields(s.SelectionSet, vars)...)
			}
		case *ast.FragmentSpread:
			if included(s.Directives, vars) && s.Definition != nil {
				fields = append(fields, collectFields(s.Definition.SelectionSet, vars)...)
			}
		}
	}
	return fields
}

func included(directives ast.DirectiveList, vars map[string]any) bool {
	if d := directives.ForName("skip"); d != nil {
		if skip, _ := d.ArgumentMap(vars)["if"].(bool); skip {
			return false
		}
	}
	if d := directives.ForName("include"); d != nil {
		if include, _ := d.ArgumentMap(vars)["if"].(bool); !include {
			return false
		}
	}
	return true
}

func fieldError(field *ast.Field, err error) *gqlerror.Error {
	gqlErr := gqlerror.ErrorPosf(field.Position, "%s", err.Error())
	gqlErr.Path = ast.Path{ast.PathName(field.Alias)}
	gqlErr.Extensions = ErrorExtensions(err)
	return gqlErr
}

func asGQLError(err error) *gqlerror.Error {
	var gqlErr *gqlerror.Error
	if errors.As(err, &gqlErr) {
		return gqlErr
	}
	return &gqlerror.Error{Message: err.Error()}
}
