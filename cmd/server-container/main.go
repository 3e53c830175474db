package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"github.com/matthgross1/message-intent-lab/app"
	"github.com/matthgross1/message-intent-lab/app/config"
)

var ginLambda *ginadapter.GinLambda

// init runs once per Lambda container (cold start)
func init() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	store := app.NewPostgresLedgerStore(app.MustOpenDB(cfg.DB))
	analyzer, err := app.NewAnthropicAnalyzer(cfg.Anthropic)
	if err != nil {
		log.Fatalf("failed to initialize analyzer: %v", err)
	}

	server := app.NewServer(cfg, store, analyzer)
	ginLambda = ginadapter.New(server.NewRouter())
}

// Handler is the Lambda entrypoint for API Gateway proxy integration.
func Handler(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return ginLambda.ProxyWithContext(ctx, req)
}

func main() {
	lambda.Start(Handler)
}
