package children_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"guardian/internal/children"
	"guardian/internal/children/store"
	"guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
)

const (
	testChild  = "9a1b2c3d-4e5f-4a6b-8c7d-0e1f2a3b4c5d"
	testParent = "0f9e8d7c-6b5a-4493-8271-605f4e3d2c1b"
)

type ChildrenSuite struct {
	suite.Suite
	svc *children.Service
}

func TestChildrenSuite(t *testing.T) {
	suite.Run(t, new(ChildrenSuite))
}

func (s *ChildrenSuite) SetupTest() {
	svc, err := children.New(store.NewMemoryStore())
	s.Require().NoError(err)
	s.svc = svc
}

func (s *ChildrenSuite) profile() *domain.ChildProfile {
	return &domain.ChildProfile{
		ID:          domain.ChildID(testChild),
		ParentID:    domain.ParentID(testParent),
		Age:         7,
		SafetyLevel: domain.SafetyStrict,
		Language:    "en",
		CreatedAt:   time.Now().UTC(),
	}
}

func (s *ChildrenSuite) TestRegisterValidation() {
	s.Run("age below range", func() {
		p := s.profile()
		p.Age = 2
		err := s.svc.Register(context.Background(), p)
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeInvalidInput))
	})

	s.Run("valid profile round-trips", func() {
		s.Require().NoError(s.svc.Register(context.Background(), s.profile()))

		got, err := s.svc.Get(context.Background(), domain.ChildID(testChild))
		s.Require().NoError(err)
		s.Equal(7, got.Age)
		s.Equal(domain.SafetyStrict, got.SafetyLevel)
	})
}

func (s *ChildrenSuite) TestGetUnknownChild() {
	_, err := s.svc.Get(context.Background(), domain.ChildID(testChild))
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *ChildrenSuite) TestOwned() {
	s.Require().NoError(s.svc.Register(context.Background(), s.profile()))

	s.Run("owner allowed", func() {
		got, err := s.svc.Owned(context.Background(), domain.ParentID(testParent), domain.ChildID(testChild))
		s.Require().NoError(err)
		s.Equal(domain.ChildID(testChild), got.ID)
	})

	s.Run("other parent denied", func() {
		_, err := s.svc.Owned(context.Background(), domain.ParentID("11111111-2222-4333-8444-555566667777"), domain.ChildID(testChild))
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	})
}
