package domain

type Platform string

const (
	WhatsApp Platform = "whatsapp"
	Telegram Platform = "telegram"
	Facebook Platform = "facebook"
)

func (p Platform) Valid() bool {
	switch p {
	case WhatsApp, Telegram, Facebook:
		return true
	}
	return false
}

func (p Platform) Label() string {
	switch p {
	case WhatsApp:
		return "WhatsApp"
	case Telegram:
		return "Telegram"
	case Facebook:
		return "Facebook"
	}
	return string(p)
}

type SocialGroup struct {
	ID          string
	Name        string
	Platform    Platform
	URL         string
	MemberCount int
	IsActive    bool
	Description string
}
