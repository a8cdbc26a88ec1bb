package sentiment

// baseLexicon holds general and market vocabulary on a -4..4 valence scale.
var baseLexicon = map[string]float64{
	// general positive
	"good": 1.9, "great": 3.1, "excellent": 2.7, "best": 3.2, "better": 1.9,
	"win": 2.8, "wins": 2.7, "winning": 2.4, "won": 2.7, "success": 2.7,
	"successful": 2.8, "happy": 2.7, "hope": 1.9, "hopes": 1.6, "hopeful": 2.3,
	"optimism": 2.5, "optimistic": 2.3, "confident": 2.2, "confidence": 2.3,
	"positive": 2.6, "strong": 2.3, "stronger": 2.0, "strength": 2.2,
	"improve": 1.9, "improves": 1.8, "improved": 2.1, "improvement": 2.0,
	"benefit": 2.0, "benefits": 1.6, "boost": 1.7, "boosts": 1.3, "boosted": 1.5,
	"support": 1.7, "supports": 1.5, "welcome": 2.0, "welcomes": 1.7,
	"secure": 1.4, "safe": 1.9, "stable": 1.2, "stability": 1.5, "relief": 2.1,
	"agree": 1.5, "agreement": 2.2, "deal": 0.9, "approve": 2.0, "approved": 1.8,
	"praise": 2.6, "celebrate": 2.7, "opportunity": 1.8, "opportunities": 1.6,
	"innovative": 1.9, "innovation": 1.8, "resilient": 1.8, "robust": 1.9,
	"bright": 1.9, "promising": 2.3, "love": 3.2, "like": 1.5,

	// market positive
	"gain": 2.4, "gains": 1.8, "gained": 1.6, "rally": 1.8, "rallies": 1.7,
	"rallied": 1.7, "surge": 1.6, "surges": 1.6, "surged": 1.6, "soar": 2.0,
	"soars": 2.0, "soared": 2.0, "jump": 1.0, "jumps": 1.0, "jumped": 1.0,
	"climb": 1.2, "climbs": 1.2, "climbed": 1.2, "rise": 1.1, "rises": 1.1,
	"rising": 1.0, "rose": 1.1, "record": 0.8, "high": 0.6, "higher": 0.9,
	"profit": 1.9, "profits": 1.9, "profitable": 2.3, "beat": 1.3, "beats": 1.4,
	"outperform": 1.9, "outperforms": 1.9, "upgrade": 1.8, "upgrades": 1.7,
	"upgraded": 1.8, "bullish": 2.2, "growth": 1.9, "grow": 1.6, "grows": 1.5,
	"expansion": 1.5, "recover": 1.6, "recovers": 1.6, "recovery": 1.9,
	"rebound": 1.5, "rebounds": 1.5, "dividend": 1.2, "upbeat": 2.0,
	"breakthrough": 2.4, "boom": 1.8, "booming": 2.0, "upside": 1.5,

	// general negative
	"bad": -2.5, "worse": -2.1, "worst": -3.1, "fail": -2.5, "fails": -2.2,
	"failed": -2.3, "failure": -2.3, "lose": -1.9, "loses": -1.8, "losing": -1.6,
	"lost": -1.3, "loss": -1.3, "losses": -1.7, "fear": -2.2, "fears": -1.8,
	"worry": -1.9, "worries": -1.8, "worried": -1.2, "concern": -1.5,
	"concerns": -1.4, "risk": -1.1, "risks": -1.1, "risky": -1.4, "threat": -2.4,
	"threats": -1.8, "threaten": -2.0, "threatens": -2.0, "crisis": -3.1,
	"problem": -1.7, "problems": -1.7, "trouble": -1.7, "warn": -1.4,
	"warns": -1.4, "warning": -1.4, "danger": -2.4, "dangerous": -2.1,
	"weak": -1.9, "weaker": -1.9, "weakness": -1.6, "uncertain": -1.2,
	"uncertainty": -1.4, "fraud": -2.8, "scandal": -2.5, "lawsuit": -1.8,
	"sue": -1.7, "sues": -1.6, "probe": -1.2, "investigation": -0.9,
	"fine": 0.8, "fined": -1.8, "penalty": -1.8, "ban": -2.6, "bans": -2.0,
	"banned": -2.0, "cut": -1.1, "cuts": -1.2, "layoffs": -2.2, "fired": -2.6,
	"war": -2.9, "attack": -2.1, "conflict": -1.3, "sanctions": -1.6,
	"hate": -2.7, "angry": -2.3, "sad": -2.1, "pain": -2.3, "painful": -2.4,
	"shock": -1.6, "shocks": -1.6, "chaos": -2.7, "panic": -2.3, "collapse": -2.5,
	"collapses": -2.5, "bankrupt": -2.6, "bankruptcy": -2.6, "debt": -1.5,
	"default": -1.7, "delay": -1.3, "delays": -1.3, "disappointing": -2.2,
	"disappoint": -2.0, "disappoints": -2.0, "struggle": -2.0, "struggles": -1.9,

	// market negative
	"fall": -1.2, "falls": -1.2, "fell": -1.2, "falling": -1.1, "drop": -1.1,
	"drops": -1.1, "dropped": -1.1, "slump": -1.8, "slumps": -1.8, "slide": -1.2,
	"slides": -1.2, "slip": -0.9, "slips": -0.9, "sink": -1.4, "sinks": -1.4,
	"sank": -1.4, "tumble": -1.7, "tumbles": -1.7, "tumbled": -1.7,
	"plunge": -2.2, "plunges": -2.2, "plunged": -2.2, "plummet": -2.4,
	"plummets": -2.4, "crash": -1.7, "crashes": -1.7, "selloff": -1.9,
	"sell-off": -1.9, "decline": -1.4, "declines": -1.4, "declined": -1.4,
	"lower": -0.8, "low": -1.1, "downgrade": -1.8, "downgrades": -1.8,
	"downgraded": -1.8, "bearish": -2.2, "recession": -2.4, "inflation": -1.0,
	"volatile": -1.2, "volatility": -1.1, "miss": -1.1, "misses": -1.3,
	"missed": -1.2, "underperform": -1.8, "tariff": -0.9, "tariffs": -1.0,
	"downturn": -2.1, "slowdown": -1.6, "bust": -1.9, "downside": -1.3,
}

// boosters scale the following valence up (positive step) or down.
var boosters = map[string]float64{
	"very": boosterStep, "extremely": boosterStep, "highly": boosterStep,
	"hugely": boosterStep, "sharply": boosterStep, "significantly": boosterStep,
	"strongly": boosterStep, "deeply": boosterStep, "most": boosterStep,
	"really": boosterStep, "incredibly": boosterStep, "massively": boosterStep,
	"substantially": boosterStep, "totally": boosterStep, "so": boosterStep,
	"slightly": -boosterStep, "somewhat": -boosterStep, "marginally": -boosterStep,
	"barely": -boosterStep, "partly": -boosterStep, "modestly": -boosterStep,
	"little": -boosterStep,
}

var negations = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "none": {}, "nobody": {}, "nothing": {},
	"neither": {}, "nor": {}, "without": {}, "cannot": {}, "hardly": {},
	"rarely": {}, "seldom": {},
}
