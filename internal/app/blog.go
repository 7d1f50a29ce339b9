package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ridepool/cms/internal/collection"
	"ridepool/cms/internal/content"
	"ridepool/cms/internal/persist"
)

// editPost applies fn to the blocks of a stored post and saves the post.
func (s *Service) editPost(ctx context.Context, postID, actor, message string, fn func(blocks *collection.Collection[content.Block]) error) (content.BlogPost, error) {
	posts, err := s.blogs.stored(ctx)
	if err != nil {
		return content.BlogPost{}, err
	}
	before := persist.Positions(posts.Items())
	updated, err := posts.UpdateByID(postID, func(post content.BlogPost) (content.BlogPost, error) {
		blocks := collection.New([]content.Block(post.Content))
		if err := fn(blocks); err != nil {
			return post, err
		}
		post.Content = content.Blocks(blocks.Items())
		return post, post.Validate()
	})
	if err != nil {
		return content.BlogPost{}, err
	}
	if err := s.blogs.commit(ctx, posts, before, actor, message, postID); err != nil {
		return content.BlogPost{}, err
	}
	return updated, nil
}

func (s *Service) AddBlock(ctx context.Context, postID string, blockType content.BlockType, actor string) (content.BlogPost, error) {
	block, err := content.NewBlock(blockType)
	if err != nil {
		return content.BlogPost{}, err
	}
	return s.editPost(ctx, postID, actor, fmt.Sprintf("add %s block to %s", blockType, postID), func(blocks *collection.Collection[content.Block]) error {
		_, err := blocks.Append(block)
		return err
	})
}

// UpdateBlock shallow-merges patch into the block. Its id, order and type
// are kept.
func (s *Service) UpdateBlock(ctx context.Context, postID, blockID string, patch json.RawMessage, actor string) (content.BlogPost, error) {
	return s.editPost(ctx, postID, actor, fmt.Sprintf("edit block %s of %s", blockID, postID), func(blocks *collection.Collection[content.Block]) error {
		_, err := blocks.UpdateByID(blockID, func(block content.Block) (content.Block, error) {
			return content.PatchBlock(block, patch)
		})
		return err
	})
}

func (s *Service) RemoveBlock(ctx context.Context, postID, blockID, actor string) (content.BlogPost, error) {
	return s.editPost(ctx, postID, actor, fmt.Sprintf("remove block %s from %s", blockID, postID), func(blocks *collection.Collection[content.Block]) error {
		if !blocks.RemoveByID(blockID) {
			return fmt.Errorf("%w: %s", collection.ErrNotFound, blockID)
		}
		return nil
	})
}

func (s *Service) MoveBlock(ctx context.Context, postID, blockID string, dir collection.Direction, actor string) (content.BlogPost, error) {
	return s.editPost(ctx, postID, actor, fmt.Sprintf("move block %s %s", blockID, dir), func(blocks *collection.Collection[content.Block]) error {
		if _, ok := blocks.Get(blockID); !ok {
			return fmt.Errorf("%w: %s", collection.ErrNotFound, blockID)
		}
		blocks.MoveAdjacent(blockID, dir)
		return nil
	})
}

func (s *Service) ReorderBlocks(ctx context.Context, postID string, ids []string, actor string) (content.BlogPost, error) {
	return s.editPost(ctx, postID, actor, "reorder blocks of "+postID, func(blocks *collection.Collection[content.Block]) error {
		return blocks.Reorder(ids)
	})
}

// RemoveListEntry drops one entry of a list block. The list keeps at least
// one, possibly blank, entry.
func (s *Service) RemoveListEntry(ctx context.Context, postID, blockID string, index int, actor string) (content.BlogPost, error) {
	return s.editPost(ctx, postID, actor, fmt.Sprintf("edit list %s of %s", blockID, postID), func(blocks *collection.Collection[content.Block]) error {
		_, err := blocks.UpdateByID(blockID, func(block content.Block) (content.Block, error) {
			list, ok := block.(content.List)
			if !ok {
				return block, errNotAList
			}
			return content.RemoveListEntry(list, index), nil
		})
		return err
	})
}

// PublishDue publishes every scheduled post whose time has come and reports
// how many were flipped.
func (s *Service) PublishDue(ctx context.Context, now time.Time) (int, error) {
	posts, err := s.blogs.stored(ctx)
	if err != nil {
		return 0, err
	}
	before := persist.Positions(posts.Items())
	var due []string
	for _, post := range posts.Items() {
		if post.Status != content.StatusScheduled || !post.Live(now) {
			continue
		}
		at := now.UTC()
		if _, err := posts.UpdateByID(post.ID, func(p content.BlogPost) (content.BlogPost, error) {
			p.Status = content.StatusPublished
			p.PublishedAt = &at
			return p, nil
		}); err != nil {
			return 0, err
		}
		due = append(due, post.ID)
	}
	if len(due) == 0 {
		return 0, nil
	}
	if err := s.blogs.commit(ctx, posts, before, "publisher", fmt.Sprintf("publish %d scheduled posts", len(due)), due...); err != nil {
		return 0, err
	}
	for _, id := range due {
		s.log.Info("scheduled post published", zap.String("post", id))
	}
	return len(due), nil
}

// RunPublisher calls PublishDue every interval until ctx is done.
func (s *Service) RunPublisher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.PublishDue(ctx, s.now()); err != nil {
				s.log.Warn("scheduled publish failed", zap.Error(err))
			}
		}
	}
}
