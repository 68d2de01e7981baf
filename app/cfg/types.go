package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// Application configuration
	SourcesDir        string
	Port              string
	BaseUrl           string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Reading time estimation
	WordsPerMinute      int
	StrictNormalization bool

	// Public feed
	SiteTitle    string
	FeedMaxItems int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
