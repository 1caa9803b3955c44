package config

const (
	defaultDataDir                    = "~/.local/share/reelsync"
	defaultLogDir                     = "~/.local/share/reelsync/logs"
	defaultSourceName                 = "Tamilan24"
	defaultSourceBaseURL              = "https://tamilan24.com"
	defaultListingPath                = "/videos/latest"
	defaultLoginPath                  = "/login"
	defaultUserAgent                  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	defaultRequestTimeoutSeconds      = 15
	defaultSyncMode                   = ModeIncremental
	defaultSchedule                   = "0 */6 * * *"
	defaultPageDelaySeconds           = 3
	defaultCandidateDelayMinMS        = 1000
	defaultCandidateDelayMaxMS        = 2000
	defaultMaxConsecutivePageFailures = 3
	defaultRetryAttempts              = 3
	defaultRetryDelaySeconds          = 2
	defaultTMDBBaseURL                = "https://api.themoviedb.org/3"
	defaultTMDBImageBaseURL           = "https://image.tmdb.org/t/p/w500"
	defaultTMDBLanguage               = "en-US"
	defaultTMDBRegion                 = "IN"
	defaultTMDBOriginalLanguage       = "ta"
	defaultTMDBMaxValidations         = 5
	defaultTMDBRequestsPerSecond      = 4.0
	defaultLogFormat                  = "console"
	defaultLogLevel                   = "info"
	defaultLogRetentionDays           = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Source: Source{
			Name:                  defaultSourceName,
			BaseURL:               defaultSourceBaseURL,
			ListingPath:           defaultListingPath,
			LoginPath:             defaultLoginPath,
			UserAgent:             defaultUserAgent,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
		},
		Sync: Sync{
			Mode:                       defaultSyncMode,
			Schedule:                   defaultSchedule,
			RunOnStart:                 true,
			PageDelaySeconds:           defaultPageDelaySeconds,
			CandidateDelayMinMS:        defaultCandidateDelayMinMS,
			CandidateDelayMaxMS:        defaultCandidateDelayMaxMS,
			MaxConsecutivePageFailures: defaultMaxConsecutivePageFailures,
			RetryAttempts:              defaultRetryAttempts,
			RetryDelaySeconds:          defaultRetryDelaySeconds,
		},
		TMDB: TMDB{
			BaseURL:           defaultTMDBBaseURL,
			ImageBaseURL:      defaultTMDBImageBaseURL,
			Language:          defaultTMDBLanguage,
			Region:            defaultTMDBRegion,
			OriginalLanguage:  defaultTMDBOriginalLanguage,
			MaxValidations:    defaultTMDBMaxValidations,
			RequestsPerSecond: defaultTMDBRequestsPerSecond,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
