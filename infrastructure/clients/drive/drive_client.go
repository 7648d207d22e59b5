package drive

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"video-relay/domain/apperror"
	"video-relay/domain/model"
	"video-relay/infrastructure/logger"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

// Uploader places staged files into Drive folders. Every upload validates the
// destination folder with the same credential first.
type Uploader struct {
	opts []option.ClientOption
}

// NewUploader accepts extra client options, appended after the credential.
func NewUploader(opts ...option.ClientOption) *Uploader {
	return &Uploader{opts: opts}
}

func (u *Uploader) service(ctx context.Context, cred model.UploadCredential) (*drive.Service, error) {
	var opts []option.ClientOption
	switch cred.Strategy {
	case model.StrategyDelegated:
		token := &oauth2.Token{AccessToken: cred.AccessToken, TokenType: "Bearer", Expiry: cred.Expiry}
		opts = append(opts, option.WithTokenSource(oauth2.StaticTokenSource(token)))
	case model.StrategyService:
		opts = append(opts, option.WithCredentialsJSON(cred.ServiceAccountJSON), option.WithScopes(drive.DriveScope))
	default:
		return nil, fmt.Errorf("unknown upload strategy %q", cred.Strategy)
	}
	opts = append(opts, u.opts...)
	return drive.NewService(ctx, opts...)
}

func (u *Uploader) Upload(ctx context.Context, req model.UploadRequest, cred model.UploadCredential) (*model.RemoteAsset, error) {
	log := logger.GetLogger().WithField("strategy", cred.Strategy).WithField("folder_id", req.FolderID)

	svc, err := u.service(ctx, cred)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeUploadFailed, "creating Drive client failed")
	}
	if err := validateFolder(ctx, svc, req.FolderID, cred.Strategy); err != nil {
		return nil, err
	}

	f, err := os.Open(req.LocalPath)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeUploadFailed, "opening staged file failed")
	}
	defer f.Close()

	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = "video/mp4"
	}
	created, err := svc.Files.Create(&drive.File{
		Name:     req.FileName,
		Parents:  []string{req.FolderID},
		MimeType: mimeType,
	}).
		Media(f, googleapi.ContentType(mimeType)).
		Fields("id, webViewLink, webContentLink").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(err, req.FolderID, cred.Strategy, "upload")
	}

	log.WithField("file_id", created.Id).WithField("file_name", req.FileName).Info("File uploaded to Drive")
	return &model.RemoteAsset{
		ID:          created.Id,
		ViewLink:    created.WebViewLink,
		ContentLink: created.WebContentLink,
		Strategy:    cred.Strategy,
	}, nil
}

// validateFolder checks that folderID exists, is a folder, and is visible to the credential.
func validateFolder(ctx context.Context, svc *drive.Service, folderID string, strategy model.UploadStrategy) error {
	file, err := svc.Files.Get(folderID).
		Fields("id, name, mimeType").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return classify(err, folderID, strategy, "folder lookup")
	}
	if file.MimeType != folderMimeType {
		return apperror.Newf(apperror.CodeNotAFolder, "%s (%s) is not a folder", folderID, file.Name).
			WithContext("folder_id", folderID).
			WithContext("mime_type", file.MimeType)
	}
	return nil
}

// classify maps Drive API failures onto relay error codes.
func classify(err error, folderID string, strategy model.UploadStrategy, step string) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusNotFound:
			return apperror.Wrap(err, apperror.CodeFolderNotFound, fmt.Sprintf("folder %s not found", folderID)).
				WithContext("folder_id", folderID)
		case http.StatusUnauthorized:
			if strategy == model.StrategyDelegated {
				return apperror.Wrap(err, apperror.CodeDelegatedCredentialInvalid, "delegated Drive token was rejected")
			}
			return apperror.Wrap(err, apperror.CodeFolderPermissionDenied, fmt.Sprintf("%s credential was rejected", strategy))
		case http.StatusForbidden:
			return apperror.Wrap(err, apperror.CodeFolderPermissionDenied, fmt.Sprintf("no access to folder %s", folderID)).
				WithContext("folder_id", folderID)
		}
	}
	return apperror.Wrap(err, apperror.CodeUploadFailed, fmt.Sprintf("Drive %s failed", step))
}
