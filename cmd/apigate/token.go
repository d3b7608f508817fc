package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	authjwt "github.com/vyrodovalexey/apigate/internal/auth/jwt"
	"github.com/vyrodovalexey/apigate/internal/config"
	"github.com/vyrodovalexey/apigate/internal/observability"
)

// issueToken signs a token for the principal named on the command line
// and writes it to w.
func issueToken(
	ctx context.Context,
	cfg *config.Config,
	flags cliFlags,
	w io.Writer,
	logger observability.Logger,
) error {
	if flags.tokenID == "" {
		return errors.New("-id is required with -issue-token")
	}

	authenticator, err := authjwt.NewAuthenticator(authjwt.Config{
		Secret:        cfg.Auth.Secret,
		Algorithm:     cfg.Auth.Algorithm,
		TokenLifetime: cfg.Auth.ExpiresIn.Duration(),
		Issuer:        cfg.Auth.Issuer,
	}, authjwt.WithLogger(logger))
	if err != nil {
		return err
	}

	token, err := authenticator.Issue(ctx, authjwt.Principal{
		ID:    flags.tokenID,
		Email: flags.tokenEmail,
		Role:  flags.tokenRole,
		Name:  flags.tokenName,
	})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, token)
	return err
}
