package main

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	orgtypes "github.com/aws/aws-sdk-go-v2/service/organizations/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// stsAPI is the subset of the STS API the credential manager uses for
// identity checks.
type stsAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// CredentialManager builds account-scoped AWS configs for the monitoring
// fleet. The home account uses the ambient credentials; remote accounts
// go through STS role assumption.
type CredentialManager struct {
	region        string
	roleName      string
	homeAccountID string
	baseConfig    aws.Config
	newSTS        func(aws.Config) stsAPI
}

// NewCredentialManager creates a credential manager and resolves the home
// account identity.
func NewCredentialManager(ctx context.Context, region, roleName string) (*CredentialManager, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %v", err)
	}

	stsClient := sts.NewFromConfig(cfg)
	identity, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve home account identity: %v", err)
	}

	return &CredentialManager{
		region:        region,
		roleName:      roleName,
		homeAccountID: aws.ToString(identity.Account),
		baseConfig:    cfg,
		newSTS:        func(c aws.Config) stsAPI { return sts.NewFromConfig(c) },
	}, nil
}

// HomeAccountID returns the account the monitor itself runs in.
func (cm *CredentialManager) HomeAccountID() string {
	return cm.homeAccountID
}

// AccountConfig returns an AWS config scoped to the given account. The
// home account gets the base config; any other account gets credentials
// from assuming the monitoring role there.
func (cm *CredentialManager) AccountConfig(accountID string) aws.Config {
	if accountID == cm.homeAccountID {
		return cm.baseConfig
	}

	roleARN := fmt.Sprintf("arn:aws:iam::%s:role/%s", accountID, cm.roleName)
	log.Printf("Assuming role %s for account %s", roleARN, accountID)

	stsClient := sts.NewFromConfig(cm.baseConfig)
	provider := stscreds.NewAssumeRoleProvider(stsClient, roleARN, func(o *stscreds.AssumeRoleOptions) {
		o.RoleSessionName = "LambdaMonitoringSession"
	})

	accountConfig := cm.baseConfig.Copy()
	accountConfig.Credentials = aws.NewCredentialsCache(provider)
	return accountConfig
}

// ValidateAccountAccess verifies that the monitoring role in the target
// account can actually be assumed.
func (cm *CredentialManager) ValidateAccountAccess(ctx context.Context, accountID string) error {
	accountConfig := cm.AccountConfig(accountID)

	stsClient := cm.newSTS(accountConfig)
	if _, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{}); err != nil {
		return fmt.Errorf("failed to validate credentials for account %s: %v", accountID, err)
	}

	log.Printf("Successfully validated access for account %s", accountID)
	return nil
}

// DiscoverAccounts lists the ACTIVE accounts of the organization the home
// account belongs to. Used when the fleet is discovered rather than
// statically configured.
func (cm *CredentialManager) DiscoverAccounts(ctx context.Context) ([]string, error) {
	client := organizations.NewFromConfig(cm.baseConfig)

	var accounts []string
	paginator := organizations.NewListAccountsPaginator(client, &organizations.ListAccountsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list organization accounts: %v", err)
		}
		for _, account := range page.Accounts {
			if account.Status != orgtypes.AccountStatusActive {
				continue
			}
			accounts = append(accounts, aws.ToString(account.Id))
		}
	}

	return accounts, nil
}
