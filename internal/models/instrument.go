package models

import "fmt"

type PromiseType string

const (
	PromiseConditional   PromiseType = "conditional"
	PromiseUnconditional PromiseType = "unconditional"
)

type AmountType string

const (
	AmountFixed    AmountType = "fixed"
	AmountVariable AmountType = "variable"
)

type Payee string

const (
	PayableToBearer         Payee = "bearer"
	PayableToOrder          Payee = "order"
	PayableToSpecificPerson Payee = "specific_person"
)

type Timing string

const (
	TimingDemand     Timing = "demand"
	TimingDefinite   Timing = "definite"
	TimingIndefinite Timing = "indefinite"
)

// Instrument describes the terms of a promise to pay money.
type Instrument struct {
	PromiseType       PromiseType `json:"promise_type"`
	AmountType        AmountType  `json:"amount_type"`
	PayableTo         Payee       `json:"payable_to"`
	Timing            Timing      `json:"timing"`
	OtherUndertakings bool        `json:"other_undertakings"`
}

// Validate rejects values outside the enumerated sets.
func (i Instrument) Validate() error {
	switch i.PromiseType {
	case PromiseConditional, PromiseUnconditional:
	default:
		return fmt.Errorf("promise_type %q must be conditional or unconditional", i.PromiseType)
	}
	switch i.AmountType {
	case AmountFixed, AmountVariable:
	default:
		return fmt.Errorf("amount_type %q must be fixed or variable", i.AmountType)
	}
	switch i.PayableTo {
	case PayableToBearer, PayableToOrder, PayableToSpecificPerson:
	default:
		return fmt.Errorf("payable_to %q must be bearer, order or specific_person", i.PayableTo)
	}
	switch i.Timing {
	case TimingDemand, TimingDefinite, TimingIndefinite:
	default:
		return fmt.Errorf("timing %q must be demand, definite or indefinite", i.Timing)
	}
	return nil
}
