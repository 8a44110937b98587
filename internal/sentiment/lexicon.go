package sentiment

// Fixed valence lexicon for headline scoring, tuned toward market language.
// Valences follow the VADER convention: roughly -4 (extremely negative) to
// +4 (extremely positive).
var lexicon = map[string]float64{
	// Positive market language
	"gain":          1.8,
	"gains":         1.8,
	"rally":         2.1,
	"rallies":       2.1,
	"surge":         2.3,
	"surges":        2.3,
	"soar":          2.5,
	"soars":         2.5,
	"jump":          1.7,
	"jumps":         1.7,
	"climb":         1.5,
	"climbs":        1.5,
	"rise":          1.4,
	"rises":         1.4,
	"rebound":       1.6,
	"rebounds":      1.6,
	"recovery":      1.7,
	"recover":       1.5,
	"beat":          1.8,
	"beats":         1.8,
	"strong":        1.9,
	"stronger":      1.9,
	"strength":      1.7,
	"bullish":       2.2,
	"bull":          1.6,
	"record":        1.3,
	"upgrade":       1.9,
	"upgrades":      1.9,
	"upgraded":      1.9,
	"outperform":    1.8,
	"outperforms":   1.8,
	"growth":        1.5,
	"profit":        1.6,
	"profits":       1.6,
	"profitable":    1.7,
	"optimism":      1.9,
	"optimistic":    1.9,
	"confidence":    1.4,
	"boom":          2.0,
	"win":           1.6,
	"wins":          1.6,
	"success":       1.8,
	"successful":    1.8,
	"improve":       1.4,
	"improves":      1.4,
	"improved":      1.4,
	"positive":      1.6,
	"robust":        1.5,
	"momentum":      1.1,
	"opportunity":   1.3,
	"breakthrough":  2.0,

	// Negative market language
	"loss":          -1.8,
	"losses":        -1.8,
	"fall":          -1.4,
	"falls":         -1.4,
	"drop":          -1.5,
	"drops":         -1.5,
	"plunge":        -2.4,
	"plunges":       -2.4,
	"crash":         -3.1,
	"crashes":       -3.1,
	"tumble":        -2.0,
	"tumbles":       -2.0,
	"slump":         -1.9,
	"slumps":        -1.9,
	"slide":         -1.4,
	"slides":        -1.4,
	"sink":          -1.7,
	"sinks":         -1.7,
	"decline":       -1.4,
	"declines":      -1.4,
	"weak":          -1.6,
	"weaker":        -1.6,
	"weakness":      -1.6,
	"bearish":       -2.2,
	"bear":          -1.5,
	"miss":          -1.6,
	"misses":        -1.6,
	"missed":        -1.6,
	"downgrade":     -1.9,
	"downgrades":    -1.9,
	"downgraded":    -1.9,
	"underperform":  -1.8,
	"underperforms": -1.8,
	"recession":     -2.5,
	"crisis":        -2.7,
	"fear":          -2.0,
	"fears":         -2.0,
	"panic":         -2.8,
	"risk":          -1.1,
	"risks":         -1.1,
	"risky":         -1.3,
	"volatile":      -1.2,
	"volatility":    -1.0,
	"uncertainty":   -1.4,
	"concern":       -1.3,
	"concerns":      -1.3,
	"warning":       -1.6,
	"warns":         -1.6,
	"headwinds":     -1.5,
	"selloff":       -2.1,
	"bankruptcy":    -3.0,
	"default":       -2.2,
	"fraud":         -2.9,
	"layoffs":       -2.0,
	"cuts":          -1.2,
	"negative":      -1.6,
	"trouble":       -1.7,
	"worries":       -1.5,
	"worry":         -1.5,
	"pessimism":     -1.9,
	"pessimistic":   -1.9,
}

// Words that flip the valence of what follows
var negations = map[string]bool{
	"not":     true,
	"no":      true,
	"never":   true,
	"neither": true,
	"nor":     true,
	"without": true,
	"lack":    true,
	"lacks":   true,
	"isn't":   true,
	"isnt":    true,
	"wasn't":  true,
	"wasnt":   true,
	"don't":   true,
	"dont":    true,
	"won't":   true,
	"wont":    true,
	"can't":   true,
	"cant":    true,
}

// Words that intensify or dampen the valence of what follows.
// Positive increment intensifies, negative dampens.
var boosters = map[string]float64{
	"very":       0.293,
	"extremely":  0.293,
	"sharply":    0.293,
	"strongly":   0.293,
	"massively":  0.293,
	"hugely":     0.293,
	"record":     0.2,
	"slightly":   -0.293,
	"somewhat":   -0.293,
	"marginally": -0.293,
	"barely":     -0.293,
	"modestly":   -0.293,
}
