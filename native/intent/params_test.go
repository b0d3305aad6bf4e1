package intent

import "testing"

func TestParamsValidateBounds(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("production params: %v", err)
	}
	if err := SimplifiedParams().Validate(); err != nil {
		t.Fatalf("simplified params: %v", err)
	}

	cases := map[string]func(p *Params){
		"capacity above ceiling": func(p *Params) { p.MaxActiveIntents = DefaultMaxActiveIntents + 10 },
		"zero capacity":          func(p *Params) { p.MaxActiveIntents = 0 },
		"slippage above cap":     func(p *Params) { p.MaxSlippageBps = 9_000 },
		"fee above denominator":  func(p *Params) { p.FeeBps = 10_001 },
		"risk score above 100":   func(p *Params) { p.MinRiskScore = 101 },
		"zero ttl":               func(p *Params) { p.LendTTL = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := DefaultParams()
			mutate(&p)
			if err := p.Validate(); err == nil {
				t.Fatalf("expected %s to be rejected", name)
			}
		})
	}

	p := DefaultParams()
	p.MaxActiveIntents = 10
	p.MaxSlippageBps = MaxSwapSlippageBps
	if err := p.Validate(); err != nil {
		t.Fatalf("tighter limits should be accepted: %v", err)
	}
}
