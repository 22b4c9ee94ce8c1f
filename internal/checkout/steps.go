package checkout

// Urutan step total; progression rule bergantung pada index di sini.
var stepOrder = []Step{StepCart, StepShipping, StepBilling, StepPayment, StepConfirmation}

func stepIndex(s Step) int {
	for i, v := range stepOrder {
		if v == s {
			return i
		}
	}
	return -1
}

// IsValidStepProgression: mundur ke step mana pun selalu boleh, maju hanya
// tepat satu step. Lompat maju >= 2 ditolak. Step yang sama bukan progression.
func IsValidStepProgression(from, to Step) bool {
	fi, ti := stepIndex(from), stepIndex(to)
	if fi < 0 || ti < 0 {
		return false
	}
	return ti < fi || ti == fi+1
}
