package autosave

import "context"

//go:generate mockgen -destination=mocks/mock_saver.go -package=mock_autosave github.com/opencode-ai/lspbridge/internal/autosave Saver

// Saver persists the content of one document.
type Saver interface {
	Save(ctx context.Context, uri, content string) error
}

type SaverFunc func(ctx context.Context, uri, content string) error

func (f SaverFunc) Save(ctx context.Context, uri, content string) error {
	return f(ctx, uri, content)
}

// Chain saves to each saver in order and stops at the first failure.
func Chain(savers ...Saver) Saver {
	return SaverFunc(func(ctx context.Context, uri, content string) error {
		for _, s := range savers {
			if err := s.Save(ctx, uri, content); err != nil {
				return err
			}
		}
		return nil
	})
}
