package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidStepProgression(t *testing.T) {
	cases := []struct {
		from, to Step
		want     bool
	}{
		{StepCart, StepShipping, true},
		{StepShipping, StepBilling, true},
		{StepBilling, StepPayment, true},
		{StepPayment, StepConfirmation, true},

		// lompat maju >= 2 ditolak
		{StepCart, StepBilling, false},
		{StepCart, StepConfirmation, false},
		{StepShipping, StepPayment, false},

		// mundur bebas
		{StepConfirmation, StepCart, true},
		{StepPayment, StepShipping, true},
		{StepBilling, StepCart, true},

		// step sama bukan progression
		{StepCart, StepCart, false},
		{StepPayment, StepPayment, false},

		// step tak dikenal
		{StepCart, Step("review"), false},
		{Step("review"), StepCart, false},
	}
	for _, c := range cases {
		assert.Equalf(t, c.want, IsValidStepProgression(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}
