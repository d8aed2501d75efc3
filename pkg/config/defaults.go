package config

const (
	defaultDestination     = "~/pocketepub"
	defaultHistoryDB       = "~/.local/share/pocketepub/history.db"
	defaultWorkers         = 4
	defaultTimeoutSeconds  = 60
	defaultCoverPolicy     = CoverAlways
	defaultSentinel        = "usagi"
	defaultPageExtension   = ".jpg"
	defaultCoverFilename   = "cover.jpg"
	defaultJPEGQuality     = 90
	defaultArchiveFilename = "output.epub"
	defaultAuthor          = "Shonenmagazine"
	defaultLanguage        = "ja"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultLogFile         = "~/.local/share/pocketepub/pocketepub.log"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			Destination: defaultDestination,
			HistoryDB:   defaultHistoryDB,
		},
		Download: Download{
			UserAgent:           defaultUserAgent,
			Workers:             defaultWorkers,
			TimeoutSeconds:      defaultTimeoutSeconds,
			CoverPolicy:         defaultCoverPolicy,
			UnscrambledSentinel: defaultSentinel,
			PageExtension:       defaultPageExtension,
			CoverFilename:       defaultCoverFilename,
			JPEGQuality:         defaultJPEGQuality,
		},
		Archive: Archive{
			Filename:    defaultArchiveFilename,
			Author:      defaultAuthor,
			Language:    defaultLanguage,
			RightToLeft: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
			File:   defaultLogFile,
		},
	}
}
