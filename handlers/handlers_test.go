package handlers

import (
	"testing"

	"admin-bot/commands"
	"admin-bot/model"
	"admin-bot/utils"
)

func TestEveryCommandHasHandler(t *testing.T) {
	full := model.GuildConfig{MuteRole: "m", TempMuteRole: "t", Persist: &model.PersistConfig{Roles: true}}
	for _, cmd := range commands.GenerateCommands(full) {
		entry, ok := commandTable[cmd.Name]
		if !ok {
			t.Errorf("%s has no handler", cmd.Name)
			continue
		}
		if _, ok := map[string]bool{
			utils.ModPermission:       true,
			utils.AdminPermission:     true,
			utils.DeveloperPermission: true,
		}[entry.level]; !ok {
			t.Errorf("%s requires unknown level %q", cmd.Name, entry.level)
		}
	}
}
