package document

//go:generate mockgen -source=document.go -destination=mocks/mocks.go -package=mocks Index

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/buession/buession-logging-sub001/pkg/logging"
	"github.com/buession/buession-logging-sub001/pkg/logging/convert"
	"github.com/buession/buession-logging-sub001/pkg/logging/handler/document/mocks"
)

// =============================================================================
// Document Handler Test Suite
// =============================================================================
// Justification for unit tests: index provisioning must run at most once per
// handler even under concurrent first deliveries, and must not run at all
// when auto-create is off. A mock index makes both call counts observable.

type DocumentHandlerSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	index  *mocks.MockIndex
	logger *slog.Logger
	ids    convert.IDGenerator
}

func TestDocumentHandlerSuite(t *testing.T) {
	suite.Run(t, new(DocumentHandlerSuite))
}

func (s *DocumentHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.index = mocks.NewMockIndex(s.ctrl)
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.ids = convert.IDGeneratorFunc(func() (string, error) { return "doc-1", nil })
}

func (s *DocumentHandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *DocumentHandlerSuite) newHandler(autoCreate bool) *Handler {
	h, err := New(Config{Index: s.index, Name: "audit", AutoCreate: autoCreate},
		WithLogger(s.logger),
		WithIDGenerator(s.ids),
	)
	s.Require().NoError(err)
	return h
}

func (s *DocumentHandlerSuite) TestNew() {
	s.Run("nil index returns error", func() {
		_, err := New(Config{Name: "audit"})
		s.ErrorIs(err, logging.ErrInvalidConfig)
	})

	s.Run("blank name returns error", func() {
		_, err := New(Config{Index: s.index, Name: " "})
		s.ErrorIs(err, logging.ErrInvalidConfig)
	})
}

func (s *DocumentHandlerSuite) TestDeliver() {
	ctx := context.Background()
	e := logging.NewBuilder().WithPrincipal("alice").Build()

	s.Run("auto create disabled never touches provisioning", func() {
		h := s.newHandler(false)
		s.index.EXPECT().Save(gomock.Any(), "audit", "doc-1", e).Return(nil).Times(2)

		s.Equal(logging.Success, h.Deliver(ctx, e))
		s.Equal(logging.Success, h.Deliver(ctx, e))
	})

	s.Run("missing index is created once", func() {
		h := s.newHandler(true)
		gomock.InOrder(
			s.index.EXPECT().Exists(gomock.Any(), "audit").Return(false, nil),
			s.index.EXPECT().Create(gomock.Any(), "audit").Return(nil),
		)
		s.index.EXPECT().Save(gomock.Any(), "audit", "doc-1", e).Return(nil).Times(3)

		for range 3 {
			s.Equal(logging.Success, h.Deliver(ctx, e))
		}
	})

	s.Run("existing index is not created", func() {
		h := s.newHandler(true)
		s.index.EXPECT().Exists(gomock.Any(), "audit").Return(true, nil)
		s.index.EXPECT().Save(gomock.Any(), "audit", "doc-1", e).Return(nil)

		s.Equal(logging.Success, h.Deliver(ctx, e))
	})

	s.Run("failed provisioning is retried on the next delivery", func() {
		h := s.newHandler(true)
		gomock.InOrder(
			s.index.EXPECT().Exists(gomock.Any(), "audit").Return(false, errors.New("unavailable")),
			s.index.EXPECT().Exists(gomock.Any(), "audit").Return(false, nil),
			s.index.EXPECT().Create(gomock.Any(), "audit").Return(nil),
		)
		s.index.EXPECT().Save(gomock.Any(), "audit", "doc-1", e).Return(nil)

		s.Equal(logging.Failure, h.Deliver(ctx, e))
		s.Equal(logging.Success, h.Deliver(ctx, e))
	})

	s.Run("save error", func() {
		h := s.newHandler(false)
		s.index.EXPECT().Save(gomock.Any(), "audit", "doc-1", e).Return(errors.New("rejected"))

		s.Equal(logging.Failure, h.Deliver(ctx, e))
	})

	s.Run("id generation error", func() {
		h, err := New(Config{Index: s.index, Name: "audit"},
			WithLogger(s.logger),
			WithIDGenerator(convert.IDGeneratorFunc(func() (string, error) { return "", errors.New("exhausted") })),
		)
		s.Require().NoError(err)

		s.Equal(logging.Failure, h.Deliver(ctx, e))
	})
}

func (s *DocumentHandlerSuite) TestConcurrentFirstDelivery() {
	ctx := context.Background()
	e := logging.NewBuilder().Build()
	h := s.newHandler(true)

	const workers = 20
	s.index.EXPECT().Exists(gomock.Any(), "audit").Return(false, nil).Times(1)
	s.index.EXPECT().Create(gomock.Any(), "audit").Return(nil).Times(1)
	s.index.EXPECT().Save(gomock.Any(), "audit", "doc-1", e).Return(nil).Times(workers)

	results := make([]logging.DispatchResult, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = h.Deliver(ctx, e)
		}()
	}
	wg.Wait()

	for _, r := range results {
		s.Equal(logging.Success, r)
	}
}
