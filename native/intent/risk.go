package intent

// RiskScorer rates how safe an asset is to settle automatically, from 0
// (unsafe) to 100.
type RiskScorer interface {
	Score(asset [20]byte) (uint8, error)
}

// HeuristicScorer derives a score from the asset identifier alone.
type HeuristicScorer struct{}

// Score implements RiskScorer.
func (HeuristicScorer) Score(asset [20]byte) (uint8, error) {
	switch first := asset[0]; {
	case first < 50:
		return 95, nil
	case first < 100:
		return 85, nil
	default:
		return 75, nil
	}
}

// StaticScorer serves operator-assigned scores and defers to Fallback for
// unlisted assets.
type StaticScorer struct {
	Scores   map[[20]byte]uint8
	Fallback RiskScorer
}

// Score implements RiskScorer.
func (s StaticScorer) Score(asset [20]byte) (uint8, error) {
	if score, ok := s.Scores[asset]; ok {
		return score, nil
	}
	if s.Fallback == nil {
		return HeuristicScorer{}.Score(asset)
	}
	return s.Fallback.Score(asset)
}
