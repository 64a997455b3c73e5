package mlb

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// flexFloat decodes a JSON number or numeric string. Anything else
// (null, bool, object, garbage text, NaN) decodes to absent.
type flexFloat struct {
	v *float64
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	f.v = nil
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
	} else {
		s = string(b)
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil
	}
	f.v = &n
	return nil
}

// flexInt is flexFloat truncated to an integer.
type flexInt struct {
	v *int
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var ff flexFloat
	_ = ff.UnmarshalJSON(b)
	f.v = nil
	if ff.v != nil {
		n := int(*ff.v)
		f.v = &n
	}
	return nil
}

// flexBool accepts true/false and their string forms.
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	switch strings.Trim(strings.ToLower(string(bytes.TrimSpace(b))), `"`) {
	case "true", "1":
		*f = true
	default:
		*f = false
	}
	return nil
}

type apiStatus struct {
	AbstractGameState string `json:"abstractGameState"`
	StatusCode        string `json:"statusCode"`
	DetailedState     string `json:"detailedState"`
}

type apiTeamRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// apiSchedule is the /schedule response.
type apiSchedule struct {
	Dates []struct {
		Date  string `json:"date"`
		Games []struct {
			GamePk   flexInt   `json:"gamePk"`
			GameDate string    `json:"gameDate"`
			Status   apiStatus `json:"status"`
			Teams    struct {
				Home struct {
					Team apiTeamRef `json:"team"`
				} `json:"home"`
				Away struct {
					Team apiTeamRef `json:"team"`
				} `json:"away"`
			} `json:"teams"`
		} `json:"games"`
	} `json:"dates"`
}

// apiLiveFeed is the subset of /game/{pk}/feed/live this client reads.
type apiLiveFeed struct {
	GamePk   flexInt `json:"gamePk"`
	GameData struct {
		Status apiStatus `json:"status"`
		Teams  struct {
			Home apiTeamRef `json:"home"`
			Away apiTeamRef `json:"away"`
		} `json:"teams"`
	} `json:"gameData"`
	LiveData struct {
		Linescore struct {
			CurrentInning flexInt `json:"currentInning"`
			InningState   string  `json:"inningState"`
			Teams         struct {
				Home struct {
					Runs flexInt `json:"runs"`
				} `json:"home"`
				Away struct {
					Runs flexInt `json:"runs"`
				} `json:"away"`
			} `json:"teams"`
		} `json:"linescore"`
		Plays struct {
			AllPlays []json.RawMessage `json:"allPlays"`
		} `json:"plays"`
	} `json:"liveData"`
}

type apiPlay struct {
	Result struct {
		EventType   string   `json:"eventType"`
		Event       string   `json:"event"`
		Description string   `json:"description"`
		IsOut       flexBool `json:"isOut"`
	} `json:"result"`
	About struct {
		AtBatIndex    flexInt  `json:"atBatIndex"`
		IsComplete    flexBool `json:"isComplete"`
		IsScoringPlay flexBool `json:"isScoringPlay"`
	} `json:"about"`
	PlayEvents []struct {
		Details struct {
			EventType string `json:"eventType"`
			Event     string `json:"event"`
		} `json:"details"`
	} `json:"playEvents"`
}

// apiWPSample is one element of /game/{pk}/winProbability.
type apiWPSample struct {
	HomeTeamWinProbability flexFloat `json:"homeTeamWinProbability"`
	AwayTeamWinProbability flexFloat `json:"awayTeamWinProbability"`
	DramaIndex             flexFloat `json:"dramaIndex"`
	LeverageIndex          flexFloat `json:"leverageIndex"`
	AtBatIndex             flexInt   `json:"atBatIndex"`
	About                  struct {
		AtBatIndex flexInt `json:"atBatIndex"`
		Inning     flexInt `json:"inning"`
		HalfInning string  `json:"halfInning"`
	} `json:"about"`
	Result struct {
		Description string `json:"description"`
	} `json:"result"`
}
