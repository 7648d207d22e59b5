package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"video-relay/domain/apperror"
	"video-relay/domain/model"
	"video-relay/infrastructure/logger"
	"video-relay/infrastructure/metrics"
)

// tokenExpirySkew treats tokens that expire within this window as expired.
const tokenExpirySkew = 5 * time.Minute

// credentialPlan is the ordered list of upload strategies for one run, plus
// failures met while preparing them.
type credentialPlan struct {
	attempts []model.UploadCredential
	failures []strategyFailure
}

type strategyFailure struct {
	strategy model.UploadStrategy
	err      error
}

func (f strategyFailure) String() string {
	return fmt.Sprintf("%s: %s", f.strategy, apperror.Display(f.err))
}

// planCredentials orders the strategies: a valid delegated token, a refreshed
// delegated token, then the service credential.
func (u *RelayUsecase) planCredentials(ctx context.Context, userID string) credentialPlan {
	log := logger.GetLogger().WithField("user_id", userID)
	var plan credentialPlan

	if delegated, failure := u.delegatedCredential(ctx, userID); failure != nil {
		log.WithField("error", failure.err).Warn("Delegated Drive credential unusable")
		plan.failures = append(plan.failures, *failure)
	} else if delegated != nil {
		plan.attempts = append(plan.attempts, *delegated)
	}

	if len(u.cfg.ServiceAccountJSON) > 0 {
		plan.attempts = append(plan.attempts, model.UploadCredential{
			Strategy:           model.StrategyService,
			ServiceAccountJSON: u.cfg.ServiceAccountJSON,
		})
	}
	return plan
}

func (u *RelayUsecase) delegatedCredential(ctx context.Context, userID string) (*model.UploadCredential, *strategyFailure) {
	if u.credentials == nil {
		return nil, nil
	}
	cred, err := u.credentials.GetUserCredentials(ctx, userID)
	if err != nil {
		return nil, &strategyFailure{model.StrategyDelegated, apperror.Unknown(err, "load credentials", "", userID)}
	}
	if cred == nil || (cred.AccessToken == "" && cred.RefreshToken == "") {
		return nil, nil
	}

	now := u.now()
	if cred.AccessToken != "" && !cred.Expired(now, tokenExpirySkew) {
		upload := &model.UploadCredential{Strategy: model.StrategyDelegated, AccessToken: cred.AccessToken}
		if cred.ExpiresAt != nil {
			upload.Expiry = *cred.ExpiresAt
		}
		return upload, nil
	}

	if cred.RefreshToken == "" || u.refresher == nil {
		return nil, &strategyFailure{model.StrategyDelegated,
			apperror.New(apperror.CodeDelegatedCredentialInvalid, "delegated token expired and no refresh token is available")}
	}

	accessToken, expiry, err := u.refresher.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		return nil, &strategyFailure{model.StrategyDelegated,
			apperror.Wrap(err, apperror.CodeDelegatedCredentialInvalid, "refreshing delegated token failed")}
	}
	metrics.TokenRefreshes.WithLabelValues("ok").Inc()

	if err := u.credentials.UpdateUserAccessToken(ctx, userID, accessToken, expiry); err != nil {
		logger.GetLogger().WithField("user_id", userID).WithField("error", err).
			Error("Failed to persist refreshed Drive token")
	} else {
		logger.GetLogger().WithField("user_id", userID).WithField("expiry", expiry).Info("Refreshed Drive token persisted")
	}

	return &model.UploadCredential{Strategy: model.StrategyDelegated, AccessToken: accessToken, Expiry: expiry}, nil
}

// uploadWithFallback tries each strategy once, in order, until one succeeds.
func (u *RelayUsecase) uploadWithFallback(ctx context.Context, req model.UploadRequest, plan credentialPlan) (*model.RemoteAsset, error) {
	failures := append([]strategyFailure(nil), plan.failures...)

	for _, cred := range plan.attempts {
		log := logger.GetLogger().WithField("strategy", cred.Strategy).WithField("folder_id", req.FolderID)
		asset, err := u.uploader.Upload(ctx, req, cred)
		if err == nil {
			metrics.UploadAttempts.WithLabelValues(string(cred.Strategy), "ok").Inc()
			asset.Strategy = cred.Strategy
			log.WithField("file_id", asset.ID).Info("Upload succeeded")
			return asset, nil
		}
		metrics.UploadAttempts.WithLabelValues(string(cred.Strategy), "error").Inc()
		log.WithField("error", err).Warn("Upload attempt failed")
		failures = append(failures, strategyFailure{cred.Strategy, err})
	}

	return nil, combineFailures(failures)
}

// combineFailures names every failed strategy. A single failure keeps its own kind.
func combineFailures(failures []strategyFailure) error {
	switch len(failures) {
	case 0:
		return apperror.New(apperror.CodeUploadFailed, "no Drive credential is available for upload")
	case 1:
		if _, ok := apperror.As(failures[0].err); ok {
			return failures[0].err
		}
		return apperror.Wrap(failures[0].err, apperror.CodeUploadFailed, fmt.Sprintf("%s upload failed", failures[0].strategy))
	}

	parts := make([]string, 0, len(failures))
	code := apperror.GetCode(failures[0].err)
	for _, f := range failures {
		parts = append(parts, f.String())
		if apperror.GetCode(f.err) != code {
			code = apperror.CodeUploadFailed
		}
	}
	if code == apperror.CodeUnknown || code == apperror.CodeDelegatedCredentialInvalid {
		code = apperror.CodeUploadFailed
	}
	return apperror.Newf(code, "all upload strategies failed: %s", strings.Join(parts, "; "))
}
