/*
Package tool turns plain Go functions into tools a model can call during a
streamed exchange.

A Definition pairs a function with the name and description advertised to the
model. Parameter schemas are reflected from the function signature, so the
argument contract is whatever the Go types say it is.

# Defining tools

	func currentWeather(ctx context.Context, city string, days int) (string, error) {
		...
	}

	weather := tool.Must(currentWeather,
		tool.Name("get_weather"),
		tool.Description("Weather forecast for a city"),
		tool.Parameters("city", "days"),
	)

A context.Context parameter receives the stream's context and is not part of
the argument object. Without Parameters the arguments are named param0,
param1 and so on.

# Resolving and validating

A Registry resolves tools by name. Registering a tool compiles its parameter
schema; definitions resolved from a registry validate arguments before they
are called and report ErrInvalidArguments on mismatch.

	registry := stdx.Must1(tool.NewRegistry(weather, clock))
	readOnly, _ := registry.Filter("get_*")

# Results

The first non-error return value is the tool result. FormatResult renders it
as the text providers expect: strings as is, numbers and times in their
canonical form and everything else as JSON.
*/
package tool
