package capi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
)

const (
	errCodeResourceNotFound = "ResourceNotFoundException"
	errCodeAccessDenied     = "AccessDeniedException"
	errCodeDecryption       = "DecryptionFailure"
)

// SecretsManagerAPI is the part of *secretsmanager.Client the loader uses.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Credentials is the JSON document stored in Secrets Manager.
type Credentials struct {
	AppID       string `json:"appId"`
	AccessToken string `json:"accessToken" validate:"required"`
	PixelID     string `json:"pixelId"`
}

// LoadCredentials reads the CAPI access token from Secrets Manager.
func LoadCredentials(ctx context.Context, api SecretsManagerAPI, secretName string) (*Credentials, error) {
	out, err := api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretName),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case errCodeResourceNotFound:
				return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, secretName)
			case errCodeAccessDenied, errCodeDecryption:
				return nil, fmt.Errorf("%w: %s", ErrAccessDenied, apiErr.ErrorMessage())
			}
		}
		return nil, fmt.Errorf("get secret value: %w", err)
	}

	if out.SecretString == nil || *out.SecretString == "" {
		return nil, ErrSecretEmpty
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(*out.SecretString), &creds); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}

	if err := validate.Struct(creds); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}

	return &creds, nil
}
