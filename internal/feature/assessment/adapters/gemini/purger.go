package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"
)

// Purger は残ったリモートキャッシュを削除します。
// finalizeされずに終了した実行のキャッシュを回収するために使います。
type Purger struct {
	client *Client
	now    func() time.Time
	// displayNameが空でなければ、表示名が一致するキャッシュだけを対象にします。
	displayName string
}

// Purge はolderThanより前に作成されたキャッシュを削除し、削除数を返します。
// olderThanが0以下なら作成時刻に関係なく削除します。
func (p *Purger) Purge(ctx context.Context, olderThan time.Duration) (int, error) {
	var caches []*genai.CachedContent
	err := p.client.call(ctx, "list_caches", func(ctx context.Context) error {
		var err error
		caches, err = p.client.backend.ListCaches(ctx)
		return err
	}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to list caches: %w", err)
	}

	cutoff := p.now().Add(-olderThan)
	deleted := 0
	for _, cc := range caches {
		if p.displayName != "" && cc.DisplayName != p.displayName {
			continue
		}
		if olderThan > 0 && !cc.CreateTime.IsZero() && cc.CreateTime.After(cutoff) {
			continue
		}
		name := cc.Name
		err := p.client.call(ctx, "delete_cache", func(ctx context.Context) error {
			return p.client.backend.DeleteCache(ctx, name)
		}, nil)
		if err != nil && !isNotFound(err) {
			return deleted, fmt.Errorf("failed to delete cache %s: %w", name, err)
		}
		slog.InfoContext(ctx, "cache purged", "name", name, "display_name", cc.DisplayName, "created", cc.CreateTime)
		deleted++
	}
	return deleted, nil
}
