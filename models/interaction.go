package models

import (
	"encoding/json"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/mo"

	"rostersync/core"
)

type InteractionType int

const (
	InteractionTypePing               InteractionType = InteractionType(discordgo.InteractionPing)
	InteractionTypeApplicationCommand InteractionType = InteractionType(discordgo.InteractionApplicationCommand)
)

func (t InteractionType) String() string {
	switch t {
	case InteractionTypePing:
		return "ping"
	case InteractionTypeApplicationCommand:
		return "application_command"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// Interaction is a verified inbound event. Command is set only for application commands.
type Interaction struct {
	ID            string
	ApplicationID string
	Type          InteractionType
	Token         string
	Command       *CommandData

	// Raw holds the verified request body the interaction was parsed from
	Raw json.RawMessage
}

func (i Interaction) IsPing() bool {
	return i.Type == InteractionTypePing
}

// IsCommand reports whether the interaction is an application command that
// carries everything needed to act on it.
func (i Interaction) IsCommand() bool {
	return i.Type == InteractionTypeApplicationCommand && i.Command != nil
}

type CommandData struct {
	Name            string
	Options         []CommandOption
	ResolvedUsers   map[string]ResolvedUser
	ResolvedMembers map[string]ResolvedMember
}

type CommandOption struct {
	Name  string
	Type  discordgo.ApplicationCommandOptionType
	Value string
}

type ResolvedUser struct {
	Username   string
	GlobalName mo.Option[string]
}

type ResolvedMember struct {
	Nickname mo.Option[string]
}

// ParseInteraction decodes a verified request body into an Interaction.
// Only undecodable bodies are rejected with core.ErrProtocol. Other interaction
// types, and application commands missing their name, application ID or token,
// come back with a nil Command so callers can answer them as unsupported.
func ParseInteraction(raw []byte) (Interaction, error) {
	var event discordgo.Interaction
	if err := json.Unmarshal(raw, &event); err != nil {
		return Interaction{}, fmt.Errorf("failed to decode interaction: %w: %w", core.ErrProtocol, err)
	}

	interaction := Interaction{
		ID:            event.ID,
		ApplicationID: event.AppID,
		Type:          InteractionType(event.Type),
		Token:         event.Token,
		Raw:           json.RawMessage(raw),
	}

	if event.Type != discordgo.InteractionApplicationCommand {
		return interaction, nil
	}
	if interaction.ApplicationID == "" || interaction.Token == "" {
		return interaction, nil
	}

	data, ok := event.Data.(discordgo.ApplicationCommandInteractionData)
	if !ok || data.Name == "" {
		return interaction, nil
	}

	command := &CommandData{
		Name:            data.Name,
		Options:         flattenOptions(data.Options),
		ResolvedUsers:   map[string]ResolvedUser{},
		ResolvedMembers: map[string]ResolvedMember{},
	}
	if data.Resolved != nil {
		for id, user := range data.Resolved.Users {
			if user == nil {
				continue
			}
			command.ResolvedUsers[id] = ResolvedUser{
				Username:   user.Username,
				GlobalName: nonEmpty(user.GlobalName),
			}
		}
		for id, member := range data.Resolved.Members {
			if member == nil {
				continue
			}
			command.ResolvedMembers[id] = ResolvedMember{
				Nickname: nonEmpty(member.Nick),
			}
		}
	}
	interaction.Command = command

	return interaction, nil
}

// flattenOptions walks subcommand groups depth-first so leaf options keep their order
func flattenOptions(options []*discordgo.ApplicationCommandInteractionDataOption) []CommandOption {
	var result []CommandOption
	for _, option := range options {
		if option == nil {
			continue
		}
		switch option.Type {
		case discordgo.ApplicationCommandOptionSubCommand, discordgo.ApplicationCommandOptionSubCommandGroup:
			result = append(result, flattenOptions(option.Options)...)
			continue
		}
		result = append(result, CommandOption{
			Name:  option.Name,
			Type:  option.Type,
			Value: optionValueString(option.Value),
		})
	}
	return result
}

func optionValueString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func nonEmpty(value string) mo.Option[string] {
	if value == "" {
		return mo.None[string]()
	}
	return mo.Some(value)
}
