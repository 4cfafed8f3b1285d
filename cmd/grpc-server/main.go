package main

import (
	"context"
	"net"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"moviehub/internal/grpcserver"
	"moviehub/internal/stores"
	"moviehub/pkg/utils"
)

func main() {
	utils.LoadEnv()
	utils.SetupLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := stores.Open(ctx, utils.LoadStoreConfig())
	if err != nil {
		log.WithError(err).Fatal("[grpc] open store failed")
	}
	defer st.Close()

	srvCfg := utils.LoadServerConfig()
	listener, err := net.Listen("tcp", srvCfg.GrpcAddr)
	if err != nil {
		log.WithError(err).Fatal("[grpc] listen failed")
	}

	grpcServer := grpc.NewServer()
	grpcserver.RegisterCatalogServer(grpcServer, grpcserver.NewServer(st.Movies))

	go func() {
		<-ctx.Done()
		log.Info("[grpc] shutting down")
		grpcServer.GracefulStop()
	}()

	log.WithFields(log.Fields{"addr": srvCfg.GrpcAddr, "store": st.Backend}).Info("[grpc] server listening")
	if err := grpcServer.Serve(listener); err != nil {
		log.WithError(err).Fatal("[grpc] server stopped")
	}
}
