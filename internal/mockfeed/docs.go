package mockfeed

// Wire shapes of the Stats API documents the client reads.

type statusDoc struct {
	AbstractGameState string `json:"abstractGameState"`
	StatusCode        string `json:"statusCode"`
	DetailedState     string `json:"detailedState"`
}

type teamDoc struct {
	Name string `json:"name"`
}

type scheduleDoc struct {
	Dates []scheduleDate `json:"dates"`
}

type scheduleDate struct {
	Date  string         `json:"date"`
	Games []scheduleGame `json:"games"`
}

type scheduleGame struct {
	GamePk   int       `json:"gamePk"`
	GameDate string    `json:"gameDate"`
	Status   statusDoc `json:"status"`
	Teams    struct {
		Home struct {
			Team teamDoc `json:"team"`
		} `json:"home"`
		Away struct {
			Team teamDoc `json:"team"`
		} `json:"away"`
	} `json:"teams"`
}

type liveFeedDoc struct {
	GamePk   int `json:"gamePk"`
	GameData struct {
		Status statusDoc `json:"status"`
		Teams  struct {
			Home teamDoc `json:"home"`
			Away teamDoc `json:"away"`
		} `json:"teams"`
	} `json:"gameData"`
	LiveData struct {
		Linescore struct {
			CurrentInning *int   `json:"currentInning,omitempty"`
			InningState   string `json:"inningState,omitempty"`
			Teams         struct {
				Home struct {
					Runs *int `json:"runs,omitempty"`
				} `json:"home"`
				Away struct {
					Runs *int `json:"runs,omitempty"`
				} `json:"away"`
			} `json:"teams"`
		} `json:"linescore"`
		Plays struct {
			AllPlays []playDoc `json:"allPlays"`
		} `json:"plays"`
	} `json:"liveData"`
}

type playDoc struct {
	Result struct {
		EventType   string `json:"eventType,omitempty"`
		Event       string `json:"event,omitempty"`
		Description string `json:"description,omitempty"`
		IsOut       bool   `json:"isOut"`
		HomeScore   int    `json:"homeScore"`
		AwayScore   int    `json:"awayScore"`
	} `json:"result"`
	About struct {
		AtBatIndex    int    `json:"atBatIndex"`
		HalfInning    string `json:"halfInning"`
		Inning        int    `json:"inning"`
		IsComplete    bool   `json:"isComplete"`
		IsScoringPlay bool   `json:"isScoringPlay"`
	} `json:"about"`
	PlayEvents []playEventDoc `json:"playEvents,omitempty"`
}

type playEventDoc struct {
	Details struct {
		EventType string `json:"eventType,omitempty"`
	} `json:"details"`
}

type wpDoc struct {
	HomeTeamWinProbability float64 `json:"homeTeamWinProbability"`
	AwayTeamWinProbability float64 `json:"awayTeamWinProbability"`
	DramaIndex             float64 `json:"dramaIndex"`
	LeverageIndex          float64 `json:"leverageIndex"`
	AtBatIndex             int     `json:"atBatIndex"`
	About                  struct {
		AtBatIndex int    `json:"atBatIndex"`
		Inning     int    `json:"inning"`
		HalfInning string `json:"halfInning"`
	} `json:"about"`
	Result struct {
		Description string `json:"description"`
	} `json:"result"`
}
