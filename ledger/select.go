package ledger

import "math"

// Policy describes the transaction being funded so the selector can price
// each additional input.
type Policy struct {
	// FeeRate in sat per 1000 bytes; zero means DefaultFeeRate.
	FeeRate uint64

	// Outputs is the number of P2PKH outputs excluding XEC change.
	Outputs int

	// OpReturnLen is the OP_RETURN script length, zero if none.
	OpReturnLen int

	// FixedInputs are inputs already committed, such as token or baton
	// outputs. They count toward size and their Sats toward the total.
	FixedInputs []*Utxo

	// Dust is the smallest change worth an output; zero means DustLimit.
	Dust uint64
}

func (p Policy) dust() uint64 {
	if p.Dust == 0 {
		return DustLimit
	}
	return p.Dust
}

func (p Policy) fee(inputs int, change bool) uint64 {
	outputs := p.Outputs
	if change {
		outputs++
	}
	return EstimateFee(EstimateTxSize(inputs, outputs, p.OpReturnLen), p.FeeRate)
}

// Selection is the result of SelectInputs.
type Selection struct {
	// Inputs are the chosen XEC outputs, largest first.
	Inputs []*Utxo

	// Total is the value of Inputs plus the fixed inputs.
	Total uint64

	// Fee is what the transaction pays, including any change folded in
	// because it was below dust.
	Fee uint64

	// Change is the XEC change output value, zero when there is none.
	Change uint64
}

// SelectInputs chooses XEC outputs from available until their value covers
// target plus the estimated fee. Larger outputs are taken first so the
// transaction stays small. Token-carrying outputs in available are ignored:
// they are never spent to fund XEC.
//
// Change below the dust limit is added to the fee instead of creating an
// output. A zero target is valid only for a transaction that carries fixed
// inputs or an OP_RETURN. When the wallet cannot cover the target, or
// target plus fee does not fit in a uint64, the error is a *ShortfallError
// wrapping ErrInsufficientFunds.
func SelectInputs(target uint64, available []*Utxo, policy Policy) (*Selection, error) {
	var fixed uint64
	for _, u := range policy.FixedInputs {
		fixed = satAdd(fixed, u.Sats)
	}
	if target == 0 && len(policy.FixedInputs) == 0 && policy.OpReturnLen == 0 {
		return nil, ErrInvalidTarget
	}

	candidates := make([]*Utxo, 0, len(available))
	for _, u := range available {
		if !u.IsToken() && u.Sats > 0 {
			candidates = append(candidates, u)
		}
	}
	sortLargestFirst(candidates, func(u *Utxo) uint64 { return u.Sats })

	dust := policy.dust()
	total := fixed
	nFixed := len(policy.FixedInputs)
	for n := 0; n <= len(candidates); n++ {
		if n > 0 {
			total = satAdd(total, candidates[n-1].Sats)
		}
		inputs := nFixed + n
		if inputs == 0 {
			continue
		}

		withChange := policy.fee(inputs, true)
		need := satAdd(target, withChange, dust)
		if need < math.MaxUint64 && total >= need {
			return &Selection{
				Inputs: candidates[:n:n],
				Total:  total,
				Fee:    withChange,
				Change: total - target - withChange,
			}, nil
		}
		if need = satAdd(target, policy.fee(inputs, false)); need < math.MaxUint64 && total >= need {
			return &Selection{
				Inputs: candidates[:n:n],
				Total:  total,
				Fee:    total - target,
			}, nil
		}
	}

	need := satAdd(target, policy.fee(nFixed+len(candidates), false))
	return nil, &ShortfallError{Need: need, Have: total}
}

// TokenSelection is the result of SelectTokenInputs.
type TokenSelection struct {
	Inputs []*Utxo
	Total  uint64 // atoms across Inputs
	Change uint64 // atoms to return to the wallet
}

// SelectTokenInputs chooses outputs holding tokenID until their atoms cover
// amount, largest first. Mint batons and other tokens are never chosen.
// When the wallet holds too few atoms the error is a *ShortfallError
// wrapping ErrInsufficientTokenBalance.
func SelectTokenInputs(tokenID string, amount uint64, available []*Utxo) (*TokenSelection, error) {
	if amount == 0 {
		return nil, ErrInvalidTarget
	}

	candidates := make([]*Utxo, 0, len(available))
	var have uint64
	for _, u := range available {
		if u.HoldsToken(tokenID) && u.Token.Atoms > 0 {
			candidates = append(candidates, u)
			have += u.Token.Atoms
		}
	}
	if have < amount {
		return nil, &ShortfallError{TokenID: tokenID, Need: amount, Have: have}
	}

	sortLargestFirst(candidates, func(u *Utxo) uint64 { return u.Token.Atoms })

	sel := &TokenSelection{}
	for _, u := range candidates {
		sel.Inputs = append(sel.Inputs, u)
		sel.Total += u.Token.Atoms
		if sel.Total >= amount {
			break
		}
	}
	sel.Change = sel.Total - amount
	return sel, nil
}
