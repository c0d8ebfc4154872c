package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/casualjim/hoot/tool"
)

type forecastRequest struct {
	City string `json:"city" jsonschema:"description=City to forecast"`
	Days int    `json:"days" jsonschema:"minimum=1,maximum=7"`
}

type forecast struct {
	City  string   `json:"city"`
	Daily []string `json:"daily"`
}

// getWeather makes up a forecast.
func getWeather(req forecastRequest) (forecast, error) {
	if req.Days < 1 || req.Days > 7 {
		return forecast{}, fmt.Errorf("days must be between 1 and 7, got %d", req.Days)
	}
	conditions := []string{"sunny", "cloudy", "rain", "windy"}
	out := forecast{City: req.City}
	for i := range req.Days {
		out.Daily = append(out.Daily, conditions[(len(req.City)+i)%len(conditions)])
	}
	return out, nil
}

// currentTime falls back to UTC for zones it does not know.
func currentTime(ctx context.Context, zone string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return time.Now().UTC().Format(time.RFC3339) + " (UTC, unknown zone " + zone + ")", nil
	}
	return time.Now().In(loc).Format(time.RFC3339), nil
}

func add(a, b float64) float64 { return a + b }

func rollDice(sides int) (int, error) {
	if sides < 2 {
		return 0, fmt.Errorf("a die needs at least 2 sides, got %d", sides)
	}
	return rand.IntN(sides) + 1, nil
}

func builtinTools() (*tool.Registry, error) {
	return tool.NewRegistry(
		tool.Must(getWeather,
			tool.Name("get_weather"),
			tool.Description("Forecast the weather for a city."),
			tool.Parameters("request"),
		),
		tool.Must(currentTime,
			tool.Name("current_time"),
			tool.Description("Current time in an IANA time zone such as Europe/Lisbon."),
			tool.Parameters("zone"),
		),
		tool.Must(add,
			tool.Name("add"),
			tool.Description("Add two numbers."),
			tool.Parameters("a", "b"),
		),
		tool.Must(rollDice,
			tool.Name("roll_dice"),
			tool.Description("Roll a die with the given number of sides."),
			tool.Parameters("sides"),
		),
	)
}
