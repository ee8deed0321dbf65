package config

// NewWorksForTest creates a Works config for testing purposes
func NewWorksForTest(botSecret, clientID, clientSecret, serviceAccount, privateKey string) *Works {
	return &Works{
		botSecret:      botSecret,
		clientID:       clientID,
		clientSecret:   clientSecret,
		serviceAccount: serviceAccount,
		privateKey:     privateKey,
	}
}

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{
		level:  level,
		format: format,
		output: output,
	}
}

// NewBacklogForTest creates a Backlog config for testing purposes
func NewBacklogForTest(spaceID, apiKey, projectID, issueTypeID, priorityID string) *Backlog {
	return &Backlog{
		spaceID:     spaceID,
		apiKey:      apiKey,
		projectID:   projectID,
		issueTypeID: issueTypeID,
		priorityID:  priorityID,
	}
}
