package client

import (
	"knowhow/services/catalog-service/pkg/catalogpb"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type CatalogClient struct {
	Client catalogpb.CollectionServiceClient
	conn   *grpc.ClientConn
}

func NewCatalogClient(url string) (*CatalogClient, error) {
	cc, err := grpc.NewClient(url, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return &CatalogClient{
		Client: catalogpb.NewCollectionServiceClient(cc),
		conn:   cc,
	}, nil
}

func (c *CatalogClient) Close() error {
	return c.conn.Close()
}
