package service

import (
	"context"
	"errors"

	"idpweather/internal/auth/models"
	"idpweather/internal/credentials"
	jwttoken "idpweather/internal/jwt_token"
	dErrors "idpweather/pkg/domain-errors"
	"idpweather/pkg/platform/sentinel"
	"idpweather/pkg/requestcontext"
)

// Token exchanges an authorization code for an access token. Checks run in a
// fixed order and the first failure is returned.
func (s *Service) Token(ctx context.Context, req models.TokenRequest) (*models.TokenResult, error) {
	result, err := s.exchangeAuthorizationCode(ctx, req)
	if err != nil {
		s.metrics.IncrementTokenFailures(dErrors.WireCode(dErrors.CodeOf(err)))
		return nil, err
	}
	s.metrics.IncrementTokensIssued(req.ClientID)
	return result, nil
}

func (s *Service) exchangeAuthorizationCode(ctx context.Context, req models.TokenRequest) (*models.TokenResult, error) {
	if req.GrantType != models.GrantAuthorizationCode {
		return nil, dErrors.New(dErrors.CodeUnsupportedGrantType, "grant_type must be authorization_code")
	}
	if req.Code == "" {
		return nil, dErrors.New(dErrors.CodeInvalidGrant, "authorization code not found")
	}

	record, err := s.codes.Get(ctx, req.Code)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeInvalidGrant, "authorization code not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load authorization code")
	}

	now := requestcontext.Now(ctx)
	if record.IsExpired(now) {
		if _, err := s.codes.Delete(ctx, req.Code); err != nil {
			s.logger.WarnContext(ctx, "failed to purge expired authorization code",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return nil, dErrors.New(dErrors.CodeInvalidGrant, "authorization code expired")
	}

	if req.CredentialsConflict {
		return nil, dErrors.New(dErrors.CodeInvalidClient, "client_id does not match client credentials")
	}
	if record.ClientID != req.ClientID {
		return nil, dErrors.New(dErrors.CodeInvalidClient, "client_id does not match authorization code")
	}

	client, err := s.registry.Client(req.ClientID)
	if err != nil {
		return nil, err
	}
	if err := s.authenticateClient(ctx, client, req.ClientSecret); err != nil {
		return nil, err
	}

	removed, err := s.codes.Delete(ctx, req.Code)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume authorization code")
	}
	if !removed {
		return nil, dErrors.New(dErrors.CodeInvalidGrant, "authorization code already used")
	}

	accessToken, err := s.signer.Sign([]byte(client.SigningKey), client.ID, jwttoken.Subject{
		ID:       record.User.ID,
		Username: record.User.Username,
		Name:     record.User.Name,
	}, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign access token")
	}

	return &models.TokenResult{
		AccessToken: accessToken,
		TokenType:   models.TokenTypeBearer,
		ExpiresIn:   int(s.signer.TTL().Seconds()),
	}, nil
}

// authenticateClient accepts a missing secret unless RequireClientSecret is set.
func (s *Service) authenticateClient(ctx context.Context, client *credentials.Client, secret string) error {
	if secret == "" {
		if s.cfg.RequireClientSecret {
			return dErrors.New(dErrors.CodeClientAuthentication, "client authentication required")
		}
		s.metrics.IncrementMissingClientSecret(client.ID)
		s.logger.WarnContext(ctx, "token request without client secret accepted",
			"client_id", client.ID,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil
	}
	if err := client.CheckSecret(secret); err != nil {
		return dErrors.Wrap(err, dErrors.CodeClientAuthentication, "client authentication failed")
	}
	return nil
}
