package main

// @title           RAG Chatbot API
// @version         0.1.0
// @description     Answers questions about postgraduate programs using only the ingested PDF documentation.

// @contact.name   Sercha OSS
// @contact.url    https://github.com/custodia-labs/sercha-rag/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8000
// @BasePath  /
// @schemes   http https

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// newRootCmd creates the root command with all subcommands registered.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sercha-rag",
		Short:         "Grounded question answering over PDF documents",
		Long:          "sercha-rag ingests PDF documents into a vector store and answers questions using only their content.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("env-file", ".env", "path to a .env file (missing is fine)")

	root.AddCommand(
		newServeCmd(),
		newIngestCmd(),
		newIngestDirCmd(),
		newQueryCmd(),
		newHealthCmd(),
	)

	return root
}
