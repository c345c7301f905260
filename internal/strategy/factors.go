package strategy

import (
	"math"

	"SignalDesk/internal/model"
)

const (
	maVoteConfidence     = 70
	maHoldConfidence     = 40
	rsiVoteConfidence    = 75
	rsiHoldConfidence    = 50
	levelVoteConfidence  = 80
	levelProximity       = 0.01
	rsiOversold          = 30
	rsiOverbought        = 70
	MaxConfidence        = 95
	strongTrendStrength  = 85
	neutralTrendStrength = 50
	weakTrendStrength    = 30
)

// Trend labels.
const (
	TrendUp       = "up"
	TrendDown     = "down"
	TrendSideways = "sideways"
)

// SignalInputs are the indicator values the voters read.
type SignalInputs struct {
	Price      float64
	MA20       float64
	MA50       float64
	RSI        float64
	Support    float64
	Resistance float64
}

// voteMA follows the price/MA20/MA50 stack.
func voteMA(in SignalInputs) model.Vote {
	v := model.Vote{Voter: "ma"}
	switch {
	case in.Price > in.MA20 && in.MA20 > in.MA50:
		v.Direction, v.Confidence = model.Buy, maVoteConfidence
	case in.Price < in.MA20 && in.MA20 < in.MA50:
		v.Direction, v.Confidence = model.Sell, maVoteConfidence
	default:
		v.Direction, v.Confidence = model.Hold, maHoldConfidence
	}
	return v
}

// voteRSI buys oversold and sells overbought.
func voteRSI(in SignalInputs) model.Vote {
	v := model.Vote{Voter: "rsi"}
	switch {
	case in.RSI < rsiOversold:
		v.Direction, v.Confidence = model.Buy, rsiVoteConfidence
	case in.RSI > rsiOverbought:
		v.Direction, v.Confidence = model.Sell, rsiVoteConfidence
	default:
		v.Direction, v.Confidence = model.Hold, rsiHoldConfidence
	}
	return v
}

// voteLevels fires within 1% of support or resistance and abstains otherwise.
func voteLevels(in SignalInputs) (model.Vote, bool) {
	if in.Price <= 0 {
		return model.Vote{}, false
	}
	if math.Abs(in.Price-in.Support)/in.Price < levelProximity {
		return model.Vote{Voter: "levels", Direction: model.Buy, Confidence: levelVoteConfidence}, true
	}
	if math.Abs(in.Price-in.Resistance)/in.Price < levelProximity {
		return model.Vote{Voter: "levels", Direction: model.Sell, Confidence: levelVoteConfidence}, true
	}
	return model.Vote{}, false
}

// CombineVotes picks the majority of buy versus sell. A tie is a hold scored by the mean of all votes;
// otherwise the score is the mean of the winning side. Confidence is capped at MaxConfidence.
func CombineVotes(votes []model.Vote) (model.Direction, float64) {
	var buys, sells []float64
	var all float64
	for _, v := range votes {
		all += v.Confidence
		switch v.Direction {
		case model.Buy:
			buys = append(buys, v.Confidence)
		case model.Sell:
			sells = append(sells, v.Confidence)
		}
	}

	var dir model.Direction
	var conf float64
	switch {
	case len(buys) > len(sells):
		dir, conf = model.Buy, mean(buys)
	case len(sells) > len(buys):
		dir, conf = model.Sell, mean(sells)
	default:
		dir = model.Hold
		if len(votes) > 0 {
			conf = all / float64(len(votes))
		}
	}
	return dir, math.Max(0, math.Min(MaxConfidence, conf))
}

// GenerateSignal runs every voter and combines their votes.
func GenerateSignal(in SignalInputs) (model.Direction, float64, []model.Vote) {
	votes := []model.Vote{voteMA(in), voteRSI(in)}
	if v, ok := voteLevels(in); ok {
		votes = append(votes, v)
	}
	dir, conf := CombineVotes(votes)
	return dir, conf, votes
}

// DetermineTrend labels the short- and long-term trend as "short (long)" and scores their agreement.
func DetermineTrend(price, ma20, ma50, ma200 float64) (label string, strength int) {
	short := TrendDown
	if price > ma20 {
		short = TrendUp
	}

	long := TrendSideways
	switch {
	case ma20 > ma50 && ma50 > ma200:
		long = TrendUp
	case ma20 < ma50 && ma50 < ma200:
		long = TrendDown
	}

	switch {
	case short == long:
		strength = strongTrendStrength
	case long == TrendSideways:
		strength = neutralTrendStrength
	default:
		strength = weakTrendStrength
	}
	return short + " (" + long + ")", strength
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
