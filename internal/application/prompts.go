package application

import (
	"fmt"
	"strings"

	"smart-home-bot/internal/domain"
)

const updatePrompt = `You are a smart home assistant. Parse the user's command.
- Identify the device and the parameter to change.
- If several devices match, ask the user which one they mean.
- If the device does not exist, say so.
- Answer in JSON:
  {"device": "device name", "command": "parameter name", "value": "value"}

Use this list of the user's devices to find the matching one:
%s
Examples:
- "Turn on the kitchen chandelier" -> {"device": "Kitchen Chandelier", "command": "condition", "value": "ON"}
- "Кондиционер в кухне поставь 20 градусов" -> {"device": "Кондиционер Кухня", "command": "temperature", "value": "20"}
- "TV" (when both "TV A" and "TV B" exist) -> {"error": "Specify which device: TV A, TV B"}
- "Turn on the crystal" (no such device) -> {"error": "Device 'Crystal' not found"}

No text, only JSON.
Command: %s
`

const createPrompt = `You are a smart home assistant. Parse the user's command for adding a new device and return only a valid JSON object without any extra characters or text.

The JSON must have this structure:
{
  "name": "device name (string)",
  "device_id": "id of the most similar device from the list (string)",
  "params": {"key": "value", ...}
}

Use this list of available device types to find the most similar one:
%s
Steps:
1. Determine the new device's type and parameters from the command.
2. Find the most similar device in the list and use its id as "device_id".
3. Build the JSON following the schema above.

Examples:
- "Add a kettle to the kitchen" -> {"name": "Kitchen Kettle", "device_id": "8", "params": {"temperature": "100", "work_time": "2", "condition": "OFF"}}
- "Добавь телевизор в гостиную с громкостью 70" -> {"name": "Телевизор Гостиная", "device_id": "4", "params": {"channel": "1", "volume": "70", "condition": "OFF"}}

Command: %s
`

const deletePrompt = `You are a smart home assistant. Find the device the user wants to remove.
- Identify the device and its id.
- If several devices match, ask the user which one they mean.
- Answer in JSON:
  {"device": "device name", "id": "id"}

Use this list of the user's devices:
%s
Examples:
- "Remove the kitchen chandelier" -> {"device": "Kitchen Chandelier", "id": "2"}
- "Удали кондиционер" -> {"device": "Кондиционер", "id": "8"}
- "Remove the TV" (when both "TV A" and "TV B" exist) -> {"error": "Specify which device: TV A, TV B"}

Command: %s
`

const groupPrompt = `You are the JSON API of a smart home. Parse the user's command, which may contain instructions for several devices.

Rules:
- Return ONLY JSON, without text, comments or explanations.
- The JSON must be a valid array of objects.
- Each object describes one action on one device.

Forbidden:
- Writing text before or after the JSON (for example "Here is the result:")
- Adding comments or markdown
- Giving explanations

Response format (ONLY THIS):
[
  {"device": "device name", "command": "parameter name", "value": "value"},
  ...
]

Example 1:
Command: "turn off the light in the kitchen, turn off the light in the living room"
Answer:
[
  {"device": "Kitchen Light", "command": "condition", "value": "OFF"},
  {"device": "Living Room Light", "command": "condition", "value": "OFF"}
]

Example 2:
Command: "выключи свет во всех комнатах"
Answer:
[
  {"device": "Свет Спальня", "command": "condition", "value": "OFF"},
  {"device": "Свет Гостиная", "command": "condition", "value": "OFF"},
  {"device": "Свет Кухня", "command": "condition", "value": "OFF"}
]

Available devices:
%s
Command: %s
`

const chatPrompt = `You are a smart home assistant. Answer the user's message once, without continuing the conversation.
Never ask questions, never offer help, never ask for clarification.
Just give a short, clear and complete answer.

User message: %s
`

func buildUpdatePrompt(text string, devices []domain.Device) string {
	return fmt.Sprintf(updatePrompt, renderDevices(devices), text)
}

func buildCreatePrompt(text string, templates []domain.Device) string {
	return fmt.Sprintf(createPrompt, renderDevices(templates), text)
}

func buildDeletePrompt(text string, devices []domain.Device) string {
	return fmt.Sprintf(deletePrompt, renderDevices(devices), text)
}

func buildGroupPrompt(text string, devices []domain.Device) string {
	return fmt.Sprintf(groupPrompt, renderDevices(devices), text)
}

func buildChatPrompt(text string) string {
	return fmt.Sprintf(chatPrompt, text)
}

// renderDevices lists devices one per line with sorted parameters so the
// prompt is identical for identical snapshots.
func renderDevices(devices []domain.Device) string {
	if len(devices) == 0 {
		return "(no devices)\n"
	}

	var sb strings.Builder
	for _, d := range devices {
		sb.WriteString(fmt.Sprintf("- id: %d, name: %q", d.ID, d.Name))
		if keys := d.ParamKeys(); len(keys) > 0 {
			pairs := make([]string, 0, len(keys))
			for _, k := range keys {
				pairs = append(pairs, fmt.Sprintf("%s=%s", k, d.Params[k]))
			}
			sb.WriteString(", params: ")
			sb.WriteString(strings.Join(pairs, ", "))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
