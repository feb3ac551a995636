package history

import (
	"testing"

	"github.com/glorpus-work/gotx/pkg/model"
	"github.com/glorpus-work/gotx/pkg/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitOf(ops ...NEVRAOperation) *Unit {
	return &Unit{Ops: ops}
}

func TestMergeOperations(t *testing.T) {
	a1, a2, a3 := ref(t, "a-1-1.noarch"), ref(t, "a-2-1.noarch"), ref(t, "a-3-1.noarch")
	l1, l2 := ref(t, "l-1-1.noarch"), ref(t, "l-2-1.noarch")
	y := ref(t, "y-1-1.noarch")

	tests := []struct {
		name  string
		units []*Unit
		want  []NEVRAOperation
	}{
		{
			name: "install then erase cancels out",
			units: []*Unit{
				unitOf(NEVRAOperation{Kind: KindInstall, New: a1}),
				unitOf(NEVRAOperation{Kind: KindErase, New: a1}),
			},
			want: []NEVRAOperation{},
		},
		{
			name: "consecutive updates collapse",
			units: []*Unit{
				unitOf(NEVRAOperation{Kind: KindUpdate, New: a2, Old: &a1}),
				unitOf(NEVRAOperation{Kind: KindUpdate, New: a3, Old: &a2}),
			},
			want: []NEVRAOperation{{Kind: KindUpdate, New: a3, Old: &a1}},
		},
		{
			name: "update then downgrade back vanishes",
			units: []*Unit{
				unitOf(NEVRAOperation{Kind: KindUpdate, New: a2, Old: &a1}),
				unitOf(NEVRAOperation{Kind: KindDowngrade, New: a1, Old: &a2}),
			},
			want: []NEVRAOperation{},
		},
		{
			name: "update then downgrade below start",
			units: []*Unit{
				unitOf(NEVRAOperation{Kind: KindUpdate, New: a3, Old: &a2}),
				unitOf(NEVRAOperation{Kind: KindDowngrade, New: a1, Old: &a3}),
			},
			want: []NEVRAOperation{{Kind: KindDowngrade, New: a1, Old: &a2}},
		},
		{
			name: "repeated reinstall stays a reinstall",
			units: []*Unit{
				unitOf(NEVRAOperation{Kind: KindReinstall, New: a1, Old: &a1}),
				unitOf(NEVRAOperation{Kind: KindReinstall, New: a1, Old: &a1}),
			},
			want: []NEVRAOperation{{Kind: KindReinstall, New: a1, Old: &a1}},
		},
		{
			name: "erase then install of a newer build is an update",
			units: []*Unit{
				unitOf(NEVRAOperation{Kind: KindErase, New: a1}),
				unitOf(NEVRAOperation{Kind: KindInstall, New: a2}),
			},
			want: []NEVRAOperation{{Kind: KindUpdate, New: a2, Old: &a1}},
		},
		{
			name: "erase then install of the same build vanishes",
			units: []*Unit{
				unitOf(NEVRAOperation{Kind: KindErase, New: a1}),
				unitOf(NEVRAOperation{Kind: KindInstall, New: a1}),
			},
			want: []NEVRAOperation{},
		},
		{
			name: "obsoletion follows the obsoleter through an update",
			units: []*Unit{
				unitOf(NEVRAOperation{Kind: KindInstall, New: l1, Obsoleted: []model.PkgRef{y}}),
				unitOf(NEVRAOperation{Kind: KindUpdate, New: l2, Old: &l1}),
			},
			want: []NEVRAOperation{{Kind: KindInstall, New: l2, Obsoleted: []model.PkgRef{y}}},
		},
		{
			name: "obsoleted package is erased when the obsoleter is gone",
			units: []*Unit{
				unitOf(NEVRAOperation{Kind: KindInstall, New: l1, Obsoleted: []model.PkgRef{y}}),
				unitOf(NEVRAOperation{Kind: KindErase, New: l1}),
			},
			want: []NEVRAOperation{{Kind: KindErase, New: y}},
		},
		{
			name: "unrelated operations keep their order",
			units: []*Unit{
				unitOf(
					NEVRAOperation{Kind: KindInstall, New: l1},
					NEVRAOperation{Kind: KindUpdate, New: a2, Old: &a1},
				),
				unitOf(NEVRAOperation{Kind: KindErase, New: y}),
			},
			want: []NEVRAOperation{
				{Kind: KindInstall, New: l1},
				{Kind: KindUpdate, New: a2, Old: &a1},
				{Kind: KindErase, New: y},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeOperations(tt.units...))
		})
	}
}

type reasons map[model.PkgRef]model.Reason

func (r reasons) ReasonOf(ref model.PkgRef) model.Reason { return r[ref] }

func TestPropagatedReason(t *testing.T) {
	oldPepper, newPepper := ref(t, "pepper-20-0.x86_64"), ref(t, "pepper-20-1.x86_64")
	kernel := ref(t, "kernel-6.9-1.x86_64")
	lotus := ref(t, "lotus-4-1.x86_64")
	lily, daisy := ref(t, "lily-1-1.x86_64"), ref(t, "daisy-1-1.x86_64")

	hist := reasons{
		oldPepper: model.ReasonDependency,
		lily:      model.ReasonDependency,
		daisy:     model.ReasonGroup,
	}

	tests := []struct {
		name string
		item *transaction.Item
		want model.Reason
	}{
		{
			name: "user is kept",
			item: &transaction.Item{Op: transaction.OpUpgrade, Installed: &newPepper, Erased: &oldPepper, Reason: model.ReasonUser},
			want: model.ReasonUser,
		},
		{
			name: "always-user names are forced",
			item: &transaction.Item{Op: transaction.OpInstall, Installed: &kernel, Reason: model.ReasonDependency},
			want: model.ReasonUser,
		},
		{
			name: "upgrade inherits the replaced package's reason",
			item: &transaction.Item{Op: transaction.OpUpgrade, Installed: &newPepper, Erased: &oldPepper, Reason: model.ReasonUnknown},
			want: model.ReasonDependency,
		},
		{
			name: "obsoleting takes the strongest obsoleted reason",
			item: &transaction.Item{Op: transaction.OpInstall, Installed: &lotus, Obsoleted: []model.PkgRef{lily, daisy}, Reason: model.ReasonWeak},
			want: model.ReasonGroup,
		},
		{
			name: "falls back to the item reason",
			item: &transaction.Item{Op: transaction.OpInstall, Installed: &lotus, Reason: model.ReasonWeak},
			want: model.ReasonWeak,
		},
		{
			name: "unknown history falls back too",
			item: &transaction.Item{Op: transaction.OpDowngrade, Installed: &oldPepper, Erased: &newPepper, Reason: model.ReasonDependency},
			want: model.ReasonDependency,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PropagatedReason(tt.item, hist, []string{"kernel"}))
		})
	}
}

func TestPropagatedReasonNeverDowngradesUser(t *testing.T) {
	a1, a2 := ref(t, "a-1-1.noarch"), ref(t, "a-2-1.noarch")
	obs := ref(t, "o-1-1.noarch")
	hist := reasons{a1: model.ReasonWeak, a2: model.ReasonDependency, obs: model.ReasonWeak}

	for _, op := range []transaction.Op{transaction.OpInstall, transaction.OpUpgrade, transaction.OpDowngrade, transaction.OpReinstall, transaction.OpErase} {
		item := &transaction.Item{Op: op, Obsoleted: []model.PkgRef{obs}, Reason: model.ReasonUser}
		if op != transaction.OpErase {
			item.Installed = &a2
		}
		if op != transaction.OpInstall {
			item.Erased = &a1
		}
		assert.Equal(t, model.ReasonUser, PropagatedReason(item, hist, nil), op.String())
	}
}

func TestRecordReasons(t *testing.T) {
	s := newStore(t)
	oldPepper, newPepper := ref(t, "pepper-20-0.x86_64"), ref(t, "pepper-20-1.x86_64")
	gone := ref(t, "tour-5-0.noarch")
	require.NoError(t, s.SetReason(oldPepper, model.ReasonUser))
	require.NoError(t, s.SetReason(gone, model.ReasonDependency))

	tx := transaction.New()
	_, _ = tx.AddUpgrade(newPepper, oldPepper, nil)
	_, _ = tx.AddErase(gone)

	require.NoError(t, RecordReasons(s, tx.Items(), nil))
	assert.Equal(t, model.ReasonUser, s.ReasonOf(newPepper))
	assert.Equal(t, model.ReasonUnknown, s.ReasonOf(oldPepper))
	assert.Equal(t, model.ReasonUnknown, s.ReasonOf(gone))
}
