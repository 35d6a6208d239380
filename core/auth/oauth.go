package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jmoiron/sqlx"
	"golang.org/x/oauth2"

	"github.com/santosoadam/coursemarket/api/web"
	"github.com/santosoadam/coursemarket/api/weberr"
	"github.com/santosoadam/coursemarket/core/claims"
	"github.com/santosoadam/coursemarket/core/user"
	"github.com/santosoadam/coursemarket/random"
	"github.com/santosoadam/coursemarket/validate"
)

const sessionOauthState = "oauth_state"

type ProviderConfig struct {
	Name        string
	Client      string
	Secret      string
	URL         string
	RedirectURL string
}

type Provider struct {
	Name     string
	Config   oauth2.Config
	Verifier *oidc.IDTokenVerifier
}

func MakeProviders(ctx context.Context, cfgs []ProviderConfig) (map[string]Provider, error) {
	providers := make(map[string]Provider, len(cfgs))
	for _, cfg := range cfgs {
		prov, err := oidc.NewProvider(ctx, cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("discovering provider[%s]: %w", cfg.Name, err)
		}

		providers[cfg.Name] = Provider{
			Name: cfg.Name,
			Config: oauth2.Config{
				ClientID:     cfg.Client,
				ClientSecret: cfg.Secret,
				RedirectURL:  cfg.RedirectURL,
				Endpoint:     prov.Endpoint(),
				Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
			},
			Verifier: prov.Verifier(&oidc.Config{ClientID: cfg.Client}),
		}
	}
	return providers, nil
}

func HandleOauthLogin(sm *scs.SessionManager, providers map[string]Provider) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		prov, ok := providers[web.Param(r, "provider")]
		if !ok {
			return weberr.NotFound(errors.New("unknown oauth provider"))
		}

		state := random.String(24)
		sm.Put(ctx, sessionOauthState, state)

		http.Redirect(w, r, prov.Config.AuthCodeURL(state), http.StatusTemporaryRedirect)
		return nil
	}
}

func HandleOauthCallback(db *sqlx.DB, sm *scs.SessionManager, providers map[string]Provider, redirectURL string) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		prov, ok := providers[web.Param(r, "provider")]
		if !ok {
			return weberr.NotFound(errors.New("unknown oauth provider"))
		}

		state := sm.PopString(ctx, sessionOauthState)
		if state == "" || state != web.QueryParam(r, "state") {
			return weberr.BadRequest(errors.New("oauth state mismatch"))
		}

		token, err := prov.Config.Exchange(ctx, web.QueryParam(r, "code"))
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("exchanging oauth code: %w", err))
		}

		rawID, ok := token.Extra("id_token").(string)
		if !ok {
			return weberr.BadRequest(errors.New("token response misses the id_token"))
		}

		idToken, err := prov.Verifier.Verify(ctx, rawID)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("verifying id token: %w", err))
		}

		var profile struct {
			Name    string `json:"name"`
			Email   string `json:"email"`
			Picture string `json:"picture"`
		}
		if err := idToken.Claims(&profile); err != nil {
			return fmt.Errorf("decoding id token claims: %w", err)
		}

		usr, err := user.FetchByEmail(ctx, db, profile.Email)
		switch {
		case errors.Is(err, user.ErrNotFound):
			now := time.Now().UTC()
			usr = user.User{
				ID:           validate.GenerateID(),
				Name:         profile.Name,
				Email:        profile.Email,
				AvatarURL:    profile.Picture,
				Role:         claims.RoleSubscriber,
				AuthProvider: user.ProviderGoogle,
				Interests:    []string{},
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if usr.AvatarURL == "" {
				usr.AvatarURL = "/avatar.svg"
			}

			if err := user.Create(ctx, db, usr); err != nil {
				return fmt.Errorf("creating oauth user: %w", err)
			}

		case err != nil:
			return fmt.Errorf("fetching user by email: %w", err)
		}

		if err := login(ctx, sm, usr.ID, usr.Role); err != nil {
			return fmt.Errorf("binding session: %w", err)
		}

		http.Redirect(w, r, redirectURL, http.StatusTemporaryRedirect)
		return nil
	}
}
