package prompts

// Coach task templates. The human turns deliberately spell out each
// profile field on its own line so the model sees the full picture.
// The workout template binds no country — equipment and body metrics
// are what matter there, and locale-specific advice belongs to the
// plan task.

func init() {
	register(TaskPlan,
		MessageTemplate{
			Role: "system",
			Template: "You are a helpful health assistant whose job is to provide a workout regime, " +
				"a diet based on their locale, and health advice based on the information provided by the human.",
		},
		MessageTemplate{
			Role: "human",
			Template: `- Name: {name}
- Age: {age}
- Sex: {sex}
- Weight: {weight}
- Height: {height}
- Goals: {goals}
- Country: {country}`,
		},
	)

	register(TaskSummarize,
		MessageTemplate{
			Role: "system",
			Template: "You are an expert text summarizer. Your job is to summarize the user text, " +
				"while retaining as much information as possible.",
		},
		MessageTemplate{
			Role:     "human",
			Template: "{text}",
		},
	)

	register(TaskWorkout,
		MessageTemplate{
			Role: "system",
			Template: "You are a workout planner. Your job is to generate a workout plan " +
				"based on the user's workout equipment.",
		},
		MessageTemplate{
			Role: "human",
			Template: `Equipment: {equipment}
- Name: {name}
- Age: {age}
- Sex: {sex}
- Weight: {weight}
- Height: {height}
- Goals: {goals}`,
		},
	)

	register(TaskQuestion,
		MessageTemplate{
			Role: "system",
			Template: "You are a knowledgeable fitness and health assistant. Answer the user's question " +
				"using their profile below for context. Be specific and practical.",
		},
		MessageTemplate{
			Role: "human",
			Template: `- Name: {name}
- Age: {age}
- Sex: {sex}
- Weight: {weight}
- Height: {height}
- Goals: {goals}
- Country: {country}

Question: {query}`,
		},
	)
}
