package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	fiberadapter "github.com/awslabs/aws-lambda-go-api-proxy/fiber"
	"github.com/gofiber/fiber/v2"

	"terraform-logviewer-go/database"
	"terraform-logviewer-go/router"
)

var fiberLambda *fiberadapter.FiberLambda

func init() {
	app := fiber.New()

	database.InitDatabase()
	router.SetupRoutes(app)

	fiberLambda = fiberadapter.New(app)
}

// Handler proxies our app requests to aws lambda
func Handler(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return fiberLambda.ProxyWithContext(ctx, req)
}

func main() {
	lambda.Start(Handler)
}
