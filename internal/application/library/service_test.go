package library_test

import (
	"context"
	"testing"

	applib "github.com/moldex-io/moldex/internal/application/library"
	domainLib "github.com/moldex-io/moldex/internal/domain/library"
	"github.com/moldex-io/moldex/internal/testutil"
	"github.com/moldex-io/moldex/pkg/types/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() *applib.Service {
	domainSvc := domainLib.NewService(newFakeRepository(), testutil.NewMockLogger())
	return applib.NewService(domainSvc, testutil.NewMockLogger())
}

func TestAppCreateAndGet(t *testing.T) {
	svc := newService()
	owner := common.NewID().String()

	dto, err := svc.Create(context.Background(), "Hits", "desc", owner, "", false)
	require.NoError(t, err)
	assert.Equal(t, "Hits", dto.Name)
	assert.Equal(t, owner, dto.OwnerID)
	assert.Empty(t, dto.OrganizationID)

	got, err := svc.Get(context.Background(), dto.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.ID, got.ID)
}

func TestAppCreateWithOrganization(t *testing.T) {
	svc := newService()
	org := common.NewID().String()

	dto, err := svc.Create(context.Background(), "Shared", "", common.NewID().String(), org, true)
	require.NoError(t, err)
	assert.Equal(t, org, dto.OrganizationID)
	assert.True(t, dto.IsPublic)
}

func TestAppAddAndRemoveMolecule(t *testing.T) {
	svc := newService()
	owner := common.NewID().String()
	dto, err := svc.Create(context.Background(), "Hits", "", owner, "", false)
	require.NoError(t, err)

	moleculeID := common.NewID().String()
	added, err := svc.AddMolecule(context.Background(), dto.ID, moleculeID, owner)
	require.NoError(t, err)
	assert.True(t, added)

	page, err := svc.GetMolecules(context.Background(), dto.ID, common.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{moleculeID}, page.Items)

	removed, err := svc.RemoveMolecule(context.Background(), dto.ID, moleculeID)
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestAppListByOwner(t *testing.T) {
	svc := newService()
	owner := common.NewID().String()

	_, err := svc.Create(context.Background(), "A", "", owner, "", false)
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), "B", "", owner, "", false)
	require.NoError(t, err)

	page, err := svc.ListByOwner(context.Background(), owner, common.PageRequest{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
}

func TestAppDelete(t *testing.T) {
	svc := newService()
	dto, err := svc.Create(context.Background(), "Temp", "", common.NewID().String(), "", false)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), dto.ID))

	_, err = svc.Get(context.Background(), dto.ID)
	assert.Error(t, err)
}
