package config

import "time"

// Config collects every runtime setting of the service. Values are parsed
// from the environment with the COURSEMARKET prefix (see cmd/server).
type Config struct {
	Web      Web
	DB       DB
	Cors     Cors
	Session  Session
	Midtrans Midtrans
	Oauth    Oauth
	Rate     Rate
	Sweeper  Sweeper
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type DB struct {
	User       string `conf:"default:postgres"`
	Password   string `conf:"default:postgres,mask"`
	Host       string `conf:"default:localhost:5432"`
	Name       string `conf:"default:coursemarket"`
	DisableTLS bool   `conf:"default:true"`
}

type Cors struct {
	Origin string `conf:"default:http://localhost:3000"`
}

type Session struct {
	Lifetime time.Duration `conf:"default:24h"`
}

// Midtrans configures the hosted-payment-page gateway client.
type Midtrans struct {
	ServerKey   string        `conf:"mask"`
	SnapURL     string        `conf:"default:https://app.sandbox.midtrans.com"`
	APIURL      string        `conf:"default:https://api.sandbox.midtrans.com"`
	FinishURL   string        `conf:"default:http://localhost:3000/payment/finish"`
	ErrorURL    string        `conf:"default:http://localhost:3000/payment/error"`
	PendingURL  string        `conf:"default:http://localhost:3000/payment/pending"`
	CallTimeout time.Duration `conf:"default:10s"`
}

type Oauth struct {
	DiscoveryTimeout time.Duration `conf:"default:30s"`
	LoginRedirectURL string        `conf:"default:http://localhost:3000"`
	Google           OauthProvider
}

type OauthProvider struct {
	Client      string
	Secret      string `conf:"mask"`
	URL         string `conf:"default:https://accounts.google.com"`
	RedirectURL string `conf:"default:http://localhost:8000/auth/oauth-callback/google"`
}

type Rate struct {
	Burst      int     `conf:"default:5"`
	ExpiryMins int     `conf:"default:30"`
	LimitRPS   float64 `conf:"default:1"`
}

// Sweeper drives the background reconciliation of stale pending payments.
type Sweeper struct {
	Interval time.Duration `conf:"default:5m"`
	MinAge   time.Duration `conf:"default:15m"`
}
