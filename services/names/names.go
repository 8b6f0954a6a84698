package names

import (
	"log"

	"github.com/bwmarrin/discordgo"

	"rostersync/models"
	"rostersync/services/matcher"
)

// ResolveTargets returns one DisplayNameTarget per user option of the command,
// in option order. Users targeted twice are reported twice.
func ResolveTargets(command *models.CommandData) []models.DisplayNameTarget {
	if command == nil {
		return nil
	}

	var targets []models.DisplayNameTarget
	for _, option := range command.Options {
		if option.Type != discordgo.ApplicationCommandOptionUser || option.Value == "" {
			continue
		}
		targets = append(targets, matcher.NewTarget(DisplayName(command, option.Value)))
	}
	return targets
}

// DisplayName picks the guild nickname, then the global name, then the
// username, and finally the raw user ID when nothing was resolved.
func DisplayName(command *models.CommandData, userID string) string {
	if member, ok := command.ResolvedMembers[userID]; ok {
		if nickname, present := member.Nickname.Get(); present && nickname != "" {
			return nickname
		}
	}

	user, ok := command.ResolvedUsers[userID]
	if !ok {
		log.Printf("⚠️ User %s missing from resolved data, falling back to raw ID", userID)
		return userID
	}
	if globalName, present := user.GlobalName.Get(); present && globalName != "" {
		return globalName
	}
	if user.Username != "" {
		return user.Username
	}
	return userID
}
