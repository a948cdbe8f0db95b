package client

import (
	"knowhow/services/catalog-service/pkg/catalogpb"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// CatalogClient holds one connection to the catalog service and the two APIs served over it.
type CatalogClient struct {
	Collections catalogpb.CollectionServiceClient
	Auth        catalogpb.AuthServiceClient
	conn        *grpc.ClientConn
}

func NewCatalogClient(url string) (*CatalogClient, error) {
	cc, err := grpc.NewClient(url, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}

	return &CatalogClient{
		Collections: catalogpb.NewCollectionServiceClient(cc),
		Auth:        catalogpb.NewAuthServiceClient(cc),
		conn:        cc,
	}, nil
}

func (c *CatalogClient) Close() error {
	return c.conn.Close()
}
