package config

// HTTPServer struct for HTTP Transport configuration
type HTTPServer struct {
	Port int `yaml:"port"`
}

// Transport is a configuration for Admin Transport: HTTP, gRPC or anything
type Transport struct {
	HTTP HTTPServer `yaml:"http"`
}

// SMTP holds the mail relay credential. Leave empty to run without a relay.
type SMTP struct {
	ServerHost   string `yaml:"serverHost"`
	ServerPort   int    `yaml:"serverPort"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	AuthIdentity string `yaml:"authIdentity"`
}

// Configured reports whether the credential is filled enough to dial.
func (s SMTP) Configured() bool {
	return s.ServerHost != "" && s.ServerPort > 0
}

type Mailer struct {
	DryRun         bool   `yaml:"dryRun"`
	SenderAddr     string `yaml:"senderAddr"`
	ReplyToAddr    string `yaml:"replyToAddr"`
	SendTimeoutSec int    `yaml:"sendTimeoutSec"`

	SMTP SMTP `yaml:"smtp"`
}

type Notifier struct {
	MessageDelayMs int `yaml:"messageDelayMs"`
	MaxParallel    int `yaml:"maxParallel"`
}

type RateLimit struct {
	WindowSeconds int `yaml:"windowSeconds"`
	Cap           int `yaml:"cap"`
	SweepSeconds  int `yaml:"sweepSeconds"`
}

// Tracing exports spans to a jaeger collector when enabled. Disabled means
// the global noop tracer provider stays in place.
type Tracing struct {
	Enable         bool   `yaml:"enable"`
	JaegerEndpoint string `yaml:"jaegerEndpoint"`
}

// Config contains application config
type Config struct {
	Transport Transport `yaml:"transport"`

	Mailer Mailer `yaml:"mailer"`

	Notifier Notifier `yaml:"notifier"`

	RateLimit RateLimit `yaml:"rateLimit"`

	Tracing Tracing `yaml:"tracing"`
}
