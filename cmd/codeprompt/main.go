package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/temirov/codeprompt/internal/cli"
	"github.com/temirov/codeprompt/internal/utils"
)

// main is the entry point for the codeprompt command.
func main() {
	loggerInstance, loggerInitializationError := utils.NewApplicationLogger(false)
	if loggerInitializationError != nil {
		panic(fmt.Errorf(utils.LoggerInitializationFailedMessageFormat, loggerInitializationError))
	}
	defer func() { _ = loggerInstance.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	applicationExecutionError := cli.Execute(ctx)
	stop()
	if applicationExecutionError == nil {
		return
	}
	if errors.Is(applicationExecutionError, context.Canceled) {
		loggerInstance.Warn(utils.ApplicationInterruptedMessage)
	} else {
		loggerInstance.Error(utils.ApplicationExecutionFailedMessage, zap.Error(applicationExecutionError))
	}
	_ = loggerInstance.Sync()
	os.Exit(1)
}
