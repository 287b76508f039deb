package handlers

// Task type tags dispatched through the handler registry.
const (
	TypeFetchAPIData = "FETCH_API_DATA"
	TypeCreateFile   = "CREATE_FILE"
	TypeCompressFile = "COMPRESS_FILE"
	TypeUploadSftp   = "UPLOAD_SFTP"
	TypeUpload       = "UPLOAD"
	TypeGeneral      = "GENERAL"
)

// Artifact keys under which handlers publish their outputs for
// downstream tasks.
const (
	ArtifactResponseBody = "response_body"
	ArtifactFilePath     = "file_path"
	ArtifactArchivePath  = "archive_path"
)
