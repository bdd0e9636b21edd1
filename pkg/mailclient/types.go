package mailclient

type EmailCredential struct {
	Protocol     string `json:"protocol" yaml:"protocol" validate:"required,oneof=smtp"` // smtp, ...
	ServerHost   string `json:"server_host" yaml:"serverHost" validate:"required"`
	ServerPort   int    `json:"server_port" yaml:"serverPort" validate:"required"`
	AuthIdentity string `json:"auth_identity" yaml:"authIdentity" validate:"-"` // may be left blank to indicate that it is the same as the username
	Username     string `json:"username" yaml:"username" validate:"required"`
	Password     string `json:"password" yaml:"password" validate:"required"`
}
