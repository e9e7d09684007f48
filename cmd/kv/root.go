package kv

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/batchkv/batchkv/cmd/util"
	"github.com/batchkv/batchkv/lib/kv"
	"github.com/batchkv/batchkv/rpc/client"
)

var (
	rpcClient *client.Client
	dbID      uuid.UUID

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:               "kv",
		Short:             "Perform batched key-value operations against a database",
		PersistentPreRunE: setupKVClient,
	}
)

func init() {
	cobra.OnInitialize(util.InitClientConfig)

	util.SetupRPCClientFlags(KeyValueCommands)

	key := "database"
	KeyValueCommands.PersistentFlags().String(key, "", util.WrapString("UUID of the database to operate on"))

	KeyValueCommands.AddCommand(putCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(eraseCmd)
	KeyValueCommands.AddCommand(existsCmd)
	KeyValueCommands.AddCommand(lengthCmd)
	KeyValueCommands.AddCommand(countCmd)
	KeyValueCommands.AddCommand(listKeysCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupKVClient initializes the RPC client and resolves the target database.
func setupKVClient(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	config := util.GetClientConfig()

	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	rpcClient, err = client.NewClient(*config, t)
	if err != nil {
		return err
	}

	raw, _ := cmd.Flags().GetString("database")
	if raw == "" {
		return fmt.Errorf("--database is required")
	}
	dbID, err = uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid --database UUID: %w", err)
	}

	return nil
}

func byteArgs(args []string) [][]byte {
	out := make([][]byte, len(args))
	for i, a := range args {
		out[i] = []byte(a)
	}
	return out
}

var (
	putCmd = &cobra.Command{
		Use:   "put [key] [value] ([key] [value] ...)",
		Short: "Writes one or more key/value pairs",
		Args:  cobra.MatchAll(cobra.MinimumNArgs(2), func(_ *cobra.Command, args []string) error {
			if len(args)%2 != 0 {
				return fmt.Errorf("put requires an even number of arguments (key value pairs)")
			}
			return nil
		}),
		RunE: func(_ *cobra.Command, args []string) error {
			var keys, values [][]byte
			for i := 0; i < len(args); i += 2 {
				keys = append(keys, []byte(args[i]))
				values = append(values, []byte(args[i+1]))
			}
			if err := rpcClient.Put(dbID, 0, keys, values); err != nil {
				return err
			}
			fmt.Println("put successfully")
			return nil
		},
	}

	getCmd = &cobra.Command{
		Use:   "get [key] ([key] ...)",
		Short: "Reads the value for one or more keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			keys := byteArgs(args)
			run, err := rpcClient.Get(dbID, 0, keys, client.DefaultResultBufferSize)
			if err != nil {
				return err
			}
			run.Iter(func(i int, elem []byte) bool {
				if run.Sizes[i] == kv.KeyNotFound {
					fmt.Printf("key=%s, found=false\n", args[i])
				} else {
					fmt.Printf("key=%s, found=true, value=%s\n", args[i], elem)
				}
				return true
			})
			return nil
		},
	}

	eraseCmd = &cobra.Command{
		Use:   "erase [key] ([key] ...)",
		Short: "Deletes one or more keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := rpcClient.Erase(dbID, 0, byteArgs(args)); err != nil {
				return err
			}
			fmt.Println("erase successfully")
			return nil
		},
	}

	existsCmd = &cobra.Command{
		Use:   "exists [key] ([key] ...)",
		Short: "Checks whether each key is present",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			flags, err := rpcClient.Exists(dbID, 0, byteArgs(args))
			if err != nil {
				return err
			}
			for i, key := range args {
				fmt.Printf("key=%s, exists=%v\n", key, flags.Get(i))
			}
			return nil
		},
	}

	lengthCmd = &cobra.Command{
		Use:   "length [key] ([key] ...)",
		Short: "Reads the value length for each key, without transferring the value",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			sizes, err := rpcClient.Length(dbID, 0, byteArgs(args))
			if err != nil {
				return err
			}
			for i, key := range args {
				if sizes[i] == kv.KeyNotFound {
					fmt.Printf("key=%s, found=false\n", key)
				} else {
					fmt.Printf("key=%s, length=%d\n", key, sizes[i])
				}
			}
			return nil
		},
	}

	countCmd = &cobra.Command{
		Use:   "count",
		Short: "Returns the number of keys in the database",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			n, err := rpcClient.Count(dbID, 0)
			if err != nil {
				return err
			}
			fmt.Printf("count=%d\n", n)
			return nil
		},
	}

	listKeysCmd = &cobra.Command{
		Use:   "list-keys [fromKey] [limit]",
		Short: "Lists up to limit keys in iteration order, starting after fromKey",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			var limit int
			if _, err := fmt.Sscanf(args[1], "%d", &limit); err != nil {
				return fmt.Errorf("invalid limit: %w", err)
			}
			run, err := rpcClient.ListKeys(dbID, 0, []byte(args[0]), nil, limit, client.DefaultResultBufferSize)
			if err != nil {
				return err
			}
			run.Iter(func(_ int, elem []byte) bool {
				fmt.Printf("%s\n", elem)
				return true
			})
			return nil
		},
	}
)
