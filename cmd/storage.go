package cmd

import (
	"fmt"
	"time"

	"TuneBox/storage"

	"github.com/spf13/cobra"
)

var storageList bool

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "音频存储统计",
	Long:  `查看音频存储（本地目录或MinIO存储桶）中的文件数量和总大小，可选列出所有文件。`,
	Example: `  # 显示统计信息
  tunebox storage

  # 同时列出所有文件
  tunebox storage -l`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		stats, err := storage.Stats(cmd.Context(), store)
		if err != nil {
			return err
		}
		fmt.Printf("存储类型: %s\n", stats.Kind)
		fmt.Printf("对象数量: %d\n", stats.TotalObjects)
		fmt.Printf("总大小: %s\n", storage.FormatSize(stats.TotalSize))
		if !stats.LastModified.IsZero() {
			fmt.Printf("最后修改时间: %s\n", stats.LastModified.Format(time.RFC3339))
		}

		if !storageList {
			return nil
		}
		objects, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println("\n文件列表:")
		for _, obj := range objects {
			fmt.Printf("  %s  %s  %s\n", obj.Key, storage.FormatSize(obj.Size), obj.LastModified.Format(time.RFC3339))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(storageCmd)
	storageCmd.Flags().BoolVarP(&storageList, "list", "l", false, "列出所有文件")
}
