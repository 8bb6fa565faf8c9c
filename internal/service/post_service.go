package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"time"

	"github.com/h2non/filetype"

	"github.com/unipost/unipost-api/internal/models"
	"github.com/unipost/unipost-api/internal/repository"
	"github.com/unipost/unipost-api/internal/rules"
	"github.com/unipost/unipost-api/internal/transfer"
	"github.com/unipost/unipost-api/pkg/errs"
)

type PostService interface {
	CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, time.Duration, error)
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error)
	Remove(ctx context.Context, userID, postID int64) error
}

type postService struct {
	db     *sql.DB
	u      repository.UserRepository
	pr     repository.PostRepository
	vr     repository.VariantRepository
	mr     repository.MediaRepository
	sr     repository.ScheduleRepository
	assets *AssetsService
}

func NewPostService(
	db *sql.DB,
	u repository.UserRepository,
	pr repository.PostRepository,
	vr repository.VariantRepository,
	mr repository.MediaRepository,
	sr repository.ScheduleRepository,
	assets *AssetsService) PostService {
	return &postService{
		db:     db,
		u:      u,
		pr:     pr,
		vr:     vr,
		mr:     mr,
		sr:     sr,
		assets: assets,
	}
}

// CreatePost composes a post with its variants, media and optional schedule
// in one transaction. The returned duration is the delay until the schedule
// fires; zero when the post stays a draft.
func (s *postService) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, time.Duration, error) {
	if pc == nil {
		return 0, 0, errs.New(errs.CodeValidation, "post data is missing")
	}
	if pc.Body == "" {
		return 0, 0, errs.New(errs.CodeValidation, "body cannot be empty")
	}
	if len(pc.Variants) == 0 {
		return 0, 0, errs.New(errs.CodeValidation, "no networks selected")
	}

	networks := make([]string, 0, len(pc.Variants))
	seen := make(map[string]bool, len(pc.Variants))
	for _, v := range pc.Variants {
		if !models.IsKnownNetwork(v.Network) {
			return 0, 0, errs.Newf(errs.CodeValidation, "unknown network %q", v.Network)
		}
		if seen[v.Network] {
			return 0, 0, errs.Newf(errs.CodeValidation, "network %s selected twice", v.Network)
		}
		seen[v.Network] = true
		networks = append(networks, v.Network)
	}

	var runAt time.Time
	if pc.Schedule != nil {
		var err error
		runAt, err = time.Parse(time.RFC3339, pc.Schedule.RunAt)
		if err != nil {
			return 0, 0, errs.Wrap(err, errs.CodeValidation, "invalid schedule time format")
		}
		runAt = runAt.UTC()
	}

	// Sniff and validate the media set before any row or object is
	// written. Uploads only start once the whole set clears the rules.
	uploads, err := s.prepareUploads(networks, files)
	if err != nil {
		return 0, 0, err
	}

	user, err := s.u.GetByID(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	if user == nil {
		return 0, 0, errs.New(errs.CodeValidation, "user not found")
	}

	status := models.PostStatusDraft
	if pc.Schedule != nil {
		status = models.PostStatusScheduled
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	post := models.Post{
		OrganizationID: user.OrganizationID.Int64,
		AuthorID:       userID,
		Title:          pc.Title,
		Body:           pc.Body,
		Category:       pc.Category,
		IsPublic:       pc.IsPublic,
		Status:         status,
	}

	postID, err := s.pr.Create(ctx, tx, &post)
	if err != nil {
		return 0, 0, fmt.Errorf("error creating post: %w", err)
	}

	for _, v := range pc.Variants {
		variant := models.Variant{
			PostID:  postID,
			Network: v.Network,
			Text:    v.Text,
			Status:  models.PostStatusDraft,
		}
		if _, err = s.vr.Create(ctx, tx, &variant); err != nil {
			return 0, 0, fmt.Errorf("error creating variant: %w", err)
		}
	}

	for i, upload := range uploads {
		fileURL, uploadErr := s.assets.Upload(ctx, upload.data, upload.mime, upload.extension)
		if uploadErr != nil {
			err = fmt.Errorf("error uploading media: %w", uploadErr)
			return 0, 0, err
		}

		media := models.Media{
			PostID:     postID,
			MediaOrder: i + 1,
			Type:       upload.mediaType,
			Mime:       upload.mime,
			SizeBytes:  int64(len(upload.data)),
			URL:        fileURL,
		}
		if _, err = s.mr.Create(ctx, tx, &media); err != nil {
			return 0, 0, fmt.Errorf("error creating media row: %w", err)
		}
	}

	var delay time.Duration
	if pc.Schedule != nil {
		schedule := models.Schedule{
			PostID:   postID,
			RunAt:    runAt,
			Timezone: pc.Schedule.Timezone,
		}
		if _, err = s.sr.Create(ctx, tx, &schedule); err != nil {
			return 0, 0, fmt.Errorf("error creating schedule: %w", err)
		}
		delay = time.Until(runAt)
		if delay < 0 {
			delay = 0
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Info("post created", "post_id", postID, "status", status, "media_count", len(uploads))

	return postID, delay, nil
}

type pendingUpload struct {
	data      []byte
	mime      string
	extension string
	mediaType string
}

// prepareUploads reads and sniffs every file, running the capability rules
// incrementally as it goes.
func (s *postService) prepareUploads(networks []string, files []*multipart.FileHeader) ([]pendingUpload, error) {
	constraints := rules.EvaluateConstraints(networks)

	var uploads []pendingUpload
	var kinds []rules.MediaKind

	for _, fileHeader := range files {
		file, err := fileHeader.Open()
		if err != nil {
			return nil, fmt.Errorf("error opening uploaded file: %w", err)
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("error reading uploaded file: %w", err)
		}

		kind, err := filetype.Match(data)
		if err != nil || kind == filetype.Unknown {
			return nil, errs.Newf(errs.CodeValidation, "could not determine type of file %q", fileHeader.Filename)
		}
		mime := kind.MIME.Value

		decision := rules.CanAddMedia(mime, kinds, constraints)
		if !decision.OK {
			return nil, errs.Newf(errs.CodeValidation, "file %q rejected: %s", fileHeader.Filename, decision.Reason)
		}

		mediaKind, _ := rules.KindOfMime(mime)
		kinds = append(kinds, mediaKind)

		mediaType := models.MediaTypeImage
		if mediaKind == rules.KindVideo {
			mediaType = models.MediaTypeVideo
		}

		uploads = append(uploads, pendingUpload{
			data:      data,
			mime:      mime,
			extension: kind.Extension,
			mediaType: mediaType,
		})
	}

	if decision := rules.CheckMediaSet(kinds, constraints); !decision.OK {
		return nil, errs.New(errs.CodeValidation, decision.Reason)
	}

	return uploads, nil
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	return s.pr.GetByAuthorID(ctx, userID)
}

func (s *postService) PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil || post.AuthorID != userID {
		return nil, errs.New(errs.CodeValidation, "post not found")
	}
	return post, nil
}

func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	owned, err := s.pr.CheckByAuthorID(ctx, postID, userID)
	if err != nil {
		return err
	}
	if !owned {
		return errs.New(errs.CodeValidation, "post not found")
	}
	return s.pr.Remove(ctx, postID)
}
