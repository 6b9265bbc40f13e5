package seed

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDataset(t *testing.T) {
	data, err := Load()
	require.NoError(t, err)

	assert.NotEmpty(t, data.Bunks)
	assert.NotEmpty(t, data.Campers)
	assert.NotEmpty(t, data.Missions)
	assert.NotEmpty(t, data.Staff)

	bunkIDs := map[string]bool{}
	for _, bunk := range data.Bunks {
		bunkIDs[bunk.ID] = true
	}
	for _, camper := range data.Campers {
		assert.True(t, bunkIDs[camper.BunkID], "camper %s references unknown bunk %s", camper.ID, camper.BunkID)
	}
	for _, staff := range data.Staff {
		if staff.BunkID != nil {
			assert.True(t, bunkIDs[*staff.BunkID], "staff %s references unknown bunk", staff.Email)
		}
	}

	missionIDs := map[string]bool{}
	for _, mission := range data.Missions {
		assert.False(t, missionIDs[mission.ID], "duplicate mission id %s", mission.ID)
		missionIDs[mission.ID] = true
		assert.True(t, mission.Type.Valid(), "mission %s has invalid type", mission.ID)
	}
}

func TestGenerateCodeShape(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		assert.Len(t, code, CodeLength)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(codeAlphabet, r), "unexpected character %q", r)
		}
	}
}

func TestAssignCodesUnique(t *testing.T) {
	data, err := Load()
	require.NoError(t, err)
	require.NoError(t, AssignCodes(data.Campers))

	seen := map[string]bool{}
	for _, camper := range data.Campers {
		assert.Len(t, camper.Code, CodeLength)
		assert.False(t, seen[camper.Code], "duplicate code %s", camper.Code)
		seen[camper.Code] = true
	}
}
