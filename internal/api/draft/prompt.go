package draft

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-trekly-itineraries/internal/types"
)

// exampleResponse shows the model the expected shape for a short Tokyo trip.
const exampleResponse = `[
  {
    "day_number": 1,
    "place_name": "Tsukiji Outer Market, Tokyo, Japan",
    "description": "Walk the market stalls and have a sushi breakfast.",
    "from_time": "2023-12-02T08:30:00",
    "to_time": "2023-12-02T10:30:00",
    "estimated_cost": 40
  },
  {
    "day_number": 1,
    "place_name": "Meiji Jingu, Tokyo, Japan",
    "description": "Stroll through the forested approach to the shrine.",
    "from_time": "2023-12-02T11:30:00",
    "to_time": "2023-12-02T13:00:00",
    "estimated_cost": 0
  },
  {
    "day_number": 2,
    "place_name": "teamLab Planets, Tokyo, Japan",
    "description": "Immersive digital art museum. Book the first slot of the day.",
    "from_time": "2023-12-03T09:00:00",
    "to_time": "2023-12-03T11:00:00",
    "estimated_cost": 30
  }
]`

const systemTemplate = `You plan travel itineraries. The user describes what they enjoy and you answer with a recommended itinerary.

Answer with a JSON array only, no prose before or after it. Every element is one activity with these fields:
- day_number: number, the day of the trip starting at 1
- place_name: string, the place name followed by city and country
- description: string, what to do there in detail
- from_time: string, local start time formatted "YYYY-MM-DDTHH:MM:SS"
- to_time: string, local end time formatted "YYYY-MM-DDTHH:MM:SS"
- estimated_cost: number, in USD

Order activities so that travel between consecutive places is short, and respect opening hours.
Always answer with at least one activity.

The itinerary is named %q, the destination is %q, the trip runs from %s to %s and the traveller gets around by %s.

Example for a two day trip to Tokyo:
%s`

// SystemPrompt renders the fixed instruction sent with every draft request.
func SystemPrompt(req Request) string {
	return fmt.Sprintf(systemTemplate,
		req.Name,
		req.Destination,
		req.FromDate.Format(types.DateLayout),
		req.ToDate.Format(types.DateLayout),
		strings.ToLower(strings.ReplaceAll(string(req.Transportation), "_", " ")),
		exampleResponse,
	)
}

// cleanCompletion strips markdown code fences the model sometimes wraps JSON in.
func cleanCompletion(response string) string {
	response = strings.TrimSpace(response)
	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
	}
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}
