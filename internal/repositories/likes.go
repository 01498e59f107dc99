package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/models"
)

// PostgresLikeRepository provides PostgreSQL-backed persistence for likes.
// Toggles are conditional writes backed by partial unique indexes on
// (liked_by, subject), so two racing toggles can never leave more than one
// row per pair.
type PostgresLikeRepository struct {
	pool db.Pool
}

// NewPostgresLikeRepository constructs a like repository backed by PostgreSQL.
func NewPostgresLikeRepository(pool db.Pool) *PostgresLikeRepository {
	return &PostgresLikeRepository{pool: pool}
}

// ToggleVideoLike flips the liked state of (video, user). It reports the
// created like and true when the video became liked, or false when an
// existing like was removed.
func (r *PostgresLikeRepository) ToggleVideoLike(ctx context.Context, userID, videoID string) (models.Like, bool, error) {
	return r.toggle(ctx, userID, "video_id", videoID)
}

// ToggleCommentLike flips the liked state of (comment, user).
func (r *PostgresLikeRepository) ToggleCommentLike(ctx context.Context, userID, commentID string) (models.Like, bool, error) {
	return r.toggle(ctx, userID, "comment_id", commentID)
}

// ToggleTweetLike flips the liked state of (tweet, user).
func (r *PostgresLikeRepository) ToggleTweetLike(ctx context.Context, userID, tweetID string) (models.Like, bool, error) {
	return r.toggle(ctx, userID, "tweet_id", tweetID)
}

func (r *PostgresLikeRepository) toggle(ctx context.Context, userID, column, subjectID string) (models.Like, bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Like{}, false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	like := models.Like{
		ID:        uuid.NewString(),
		LikedBy:   userID,
		CreatedAt: time.Now().UTC(),
	}
	switch column {
	case "video_id":
		like.VideoID = &subjectID
	case "comment_id":
		like.CommentID = &subjectID
	case "tweet_id":
		like.TweetID = &subjectID
	default:
		return models.Like{}, false, fmt.Errorf("unknown like subject column %q", column)
	}

	// Insert-if-absent: the partial unique index on (liked_by, column) is the
	// conflict arbiter, so concurrent toggles cannot both insert.
	tag, err := conn.Exec(ctx, `
        INSERT INTO likes (id, liked_by, `+column+`, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (liked_by, `+column+`) WHERE `+column+` IS NOT NULL DO NOTHING
    `, like.ID, userID, subjectID, like.CreatedAt)
	if err != nil {
		return models.Like{}, false, fmt.Errorf("insert like: %w", err)
	}

	if tag.RowsAffected() == 1 {
		return like, true, nil
	}

	// Already liked: delete-if-present. A racing delete is harmless, both
	// callers observe "unliked".
	if _, err := conn.Exec(ctx, `
        DELETE FROM likes
        WHERE liked_by = $1 AND `+column+` = $2
    `, userID, subjectID); err != nil {
		return models.Like{}, false, fmt.Errorf("delete like: %w", err)
	}

	return models.Like{}, false, nil
}

// ListLikedVideos returns the videos the user has liked, most recent first.
func (r *PostgresLikeRepository) ListLikedVideos(ctx context.Context, userID string) ([]models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT v.id, v.owner_id, v.video_url, v.thumbnail_url, v.title, v.description,
               v.duration, v.views, v.is_published, v.created_at, v.updated_at
        FROM likes l
        JOIN videos v ON v.id = l.video_id
        WHERE l.liked_by = $1 AND l.video_id IS NOT NULL
        ORDER BY l.created_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query liked videos: %w", err)
	}
	defer rows.Close()

	var videos []models.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate liked videos: %w", err)
	}

	return videos, nil
}
